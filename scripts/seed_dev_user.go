// Command seed_dev_user creates a user in the development store and prints a
// bearer token the tracker CLI can use. Identity is external in production.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"codetracker/internal/core"
	"codetracker/internal/repository"
	"codetracker/pkg/config"
	"codetracker/pkg/database"
	"codetracker/pkg/models"
)

func main() {
	configPath := flag.String("config", "./configs/development.yaml", "server config file")
	name := flag.String("name", "Dev User", "display name")
	email := flag.String("email", "dev@example.com", "email")
	leetcode := flag.String("leetcode", "", "LeetCode username")
	codeforces := flag.String("codeforces", "", "Codeforces username")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	ctx := context.Background()

	var users repository.UserRepository
	if cfg.Database.Driver == "sqlite" {
		db, err := database.NewSQLite(cfg.Database.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
		users = repository.NewSQLiteUserRepository(db)
	} else {
		pool, err := database.NewPGXPool(database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		users = repository.NewUserRepository(pool)
	}

	user := &models.User{
		Name:     *name,
		Email:    *email,
		IsActive: true,
		Platforms: models.PlatformUsernames{
			models.PlatformLeetCode:   *leetcode,
			models.PlatformCodeforces: *codeforces,
		},
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &core.Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	})
	signed, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("User: %s (%s)\n", user.ID, user.Email)
	fmt.Printf("Token: %s\n\n", signed)
	fmt.Printf("tracker config set user.token %s\n", signed)
}
