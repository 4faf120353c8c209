package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"usercrud/internal/cache"
	"usercrud/internal/config"
	"usercrud/internal/db"
	"usercrud/internal/logger"
	"usercrud/internal/model"
	"usercrud/internal/repository"
	"usercrud/internal/service"
)

// SeedUserData is one entry of a seed file.
type SeedUserData struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var defaultUsers = []SeedUserData{
	{ID: 1, Email: "user1@email.com", Password: "123456"},
	{ID: 2, Email: "user2@email.com", Password: "password"},
}

func main() {
	file := flag.String("file", "", "JSON file with an array of {id, email, password}; defaults to built-in fixtures")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Starting seed script...")

	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("Connected to database")

	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	users := defaultUsers
	if *file != "" {
		users, err = loadUsersFromFile(*file)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load seed file")
		}
		log.Info().Int("count", len(users)).Str("file", *file).Msg("Loaded users from file")
	}

	ctx := context.Background()
	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, cached users may be stale until TTL")
	}

	repo := repository.NewUserRepository(gormDB)
	seeded, updated, err := seedUsers(ctx, repo, redisCache, users)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed users")
	}

	log.Info().
		Int("created", seeded).
		Int("updated", updated).
		Int("total", seeded+updated).
		Msg("Seed completed successfully")
}

// loadUsersFromFile reads a JSON array of users.
func loadUsersFromFile(path string) ([]SeedUserData, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var users []SeedUserData
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers upserts users by id and drops their cached copies.
// Entries without an id are always created.
func seedUsers(ctx context.Context, repo repository.UserRepository, redisCache *cache.Client, users []SeedUserData) (seeded int, updated int, err error) {
	for _, item := range users {
		if item.ID != 0 {
			existing, err := repo.FindByID(ctx, item.ID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return seeded, updated, fmt.Errorf("error checking user %d: %w", item.ID, err)
			}

			if existing != nil {
				existing.Email = item.Email
				existing.Password = item.Password
				if err := repo.Update(ctx, existing); err != nil {
					return seeded, updated, fmt.Errorf("error updating user %d: %w", item.ID, err)
				}
				_ = redisCache.Invalidate(ctx, service.CacheKey(existing.ID))
				updated++
				continue
			}
		}

		user := model.User{ID: item.ID, Email: item.Email, Password: item.Password}
		if err := repo.Create(ctx, &user); err != nil {
			return seeded, updated, fmt.Errorf("error creating user %s: %w", item.Email, err)
		}
		_ = redisCache.Invalidate(ctx, service.CacheKey(user.ID))
		seeded++
	}

	return seeded, updated, nil
}
