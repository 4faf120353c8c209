package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"usercrud/internal/auth"
	"usercrud/internal/cache"
	apperrors "usercrud/internal/errors"
	"usercrud/internal/model"
	"usercrud/internal/repository"
)

// DefaultCacheTTL is used when NewUserService receives a non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// UserService exposes domain operations.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	PatchUser(ctx context.Context, id uint, email, password *string) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) (remaining int64, err error)
	Authenticate(ctx context.Context, email, password string) (auth.Result, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	ttl   time.Duration
}

// NewUserService builds a UserService with repository and cache.
// cache may be nil.
func NewUserService(repo repository.UserRepository, cache *cache.Client, ttl time.Duration) UserService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &userService{repo: repo, cache: cache, ttl: ttl}
}

// CacheKey is the redis key holding the cached user with the given id.
func CacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	user := &model.User{Email: email, Password: password}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Debug().Uint("user_id", user.ID).Msg("user created")
	return user, nil
}

// GetUser reads through the cache. Cached entries hold id and email only,
// so a hit returns a user with an empty Password.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	key := CacheKey(id)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	// The version must be read before the store so a patch or delete
	// committed during the read rejects the fill below.
	version, fill := s.cache.Version(ctx, key)

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "get user")
	}

	if fill {
		s.storeCache(ctx, key, version, user)
	}
	return user, nil
}

// PatchUser applies only the non-nil fields, atomically.
func (s *userService) PatchUser(ctx context.Context, id uint, email, password *string) (*model.User, error) {
	var patched *model.User
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.UserRepository) error {
		user, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if email != nil {
			user.Email = *email
		}
		if password != nil {
			user.Password = *password
		}
		if err := tx.Update(ctx, user); err != nil {
			return err
		}
		patched = user
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err, "patch user")
	}

	_ = s.cache.Invalidate(ctx, CacheKey(id))
	return patched, nil
}

// DeleteUser removes the user and returns how many users remain.
func (s *userService) DeleteUser(ctx context.Context, id uint) (int64, error) {
	var remaining int64
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.UserRepository) error {
		if err := tx.DeleteByID(ctx, id); err != nil {
			return err
		}
		count, err := tx.Count(ctx)
		if err != nil {
			return err
		}
		remaining = count
		return nil
	})
	if err != nil {
		return 0, mapNotFound(err, "delete user")
	}

	_ = s.cache.Invalidate(ctx, CacheKey(id))
	log.Debug().Uint("user_id", id).Int64("remaining", remaining).Msg("user deleted")
	return remaining, nil
}

// Authenticate looks the user up by email and compares passwords.
// An unknown email is ErrUserNotFound, a wrong password is an unauthenticated result.
func (s *userService) Authenticate(ctx context.Context, email, password string) (auth.Result, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return auth.Result{}, mapNotFound(err, "authenticate")
	}
	return auth.Check(user, password), nil
}

// storeCache writes the user unless key was invalidated since version was read.
// model.User drops the password when marshaled.
func (s *userService) storeCache(ctx context.Context, key, version string, user *model.User) {
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.cache.SetIfVersion(ctx, key, version, payload, s.ttl); errors.Is(err, cache.ErrStale) {
		log.Debug().Uint("user_id", user.ID).Msg("stale cache fill skipped")
	}
}

func mapNotFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
