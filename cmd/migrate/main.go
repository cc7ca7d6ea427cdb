package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	dir := flag.String("dir", "migrations", "directory holding NNN_name.up.sql / NNN_name.down.sql files")
	steps := flag.Int("steps", 0, "number of migrations to revert in down mode (0 = all)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	files, err := loadMigrations(*dir)
	if err != nil {
		log.WithError(err).Fatal("failed to load migrations")
	}

	m := &migrator{db: db, log: log}
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		log.WithError(err).Fatal("failed to ensure schema_migrations")
	}

	switch strings.ToLower(*mode) {
	case "up":
		n, err := m.up(ctx, files)
		if err != nil {
			log.WithError(err).Fatal("migration up failed")
		}
		log.WithField("applied", n).Info("migration up completed")
	case "down":
		n, err := m.down(ctx, files, *steps)
		if err != nil {
			log.WithError(err).Fatal("migration down failed")
		}
		log.WithField("reverted", n).Info("migration down completed")
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}
