package config

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDB opens the relational store. Production runs postgres; setting
// DB_DRIVER=sqlite gives a file-backed dev database.
func InitDB() (*gorm.DB, error) {
	driver := os.Getenv("DB_DRIVER")

	if driver == "sqlite" {
		path := os.Getenv("DB_DSN")
		if path == "" {
			path = "grievance.db"
		}
		return gorm.Open(sqlite.Open(path), &gorm.Config{})
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			envOr("DB_HOST", "localhost"),
			envOr("DB_USER", "postgres"),
			envOr("DB_PASSWORD", "postgres"),
			envOr("DB_NAME", "grievancedb"),
			envOr("DB_PORT", "5432"),
		)
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
