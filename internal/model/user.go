package model

// User is a stored account identified by an auto-assigned integer id.
// Email is not unique; several users may share one.
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Email    string `json:"email" gorm:"size:255;not null;index"`
	Password string `json:"-" gorm:"size:255;not null"` // Never expose in JSON
}

// TableName pins the table name regardless of naming strategy.
func (User) TableName() string {
	return "users"
}
