// Command seed loads an org chart YAML file into the employees table.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/tripdesk/tripdesk/infrastructure/adapter/postgres"
	"github.com/tripdesk/tripdesk/infrastructure/orgchart"
	"github.com/tripdesk/tripdesk/infrastructure/service/password"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "org.yaml", "org chart to load")
	cost := flag.Int("bcrypt-cost", 0, "bcrypt cost (0 = library default)")
	flag.Parse()

	log := logrus.New()
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	records, err := orgchart.LoadFile(*file)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	n, err := orgchart.Seed(ctx, postgres.NewEmployeeRepository(db), password.NewBcryptPasswordService(*cost), records, time.Now().UTC())
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"file": *file, "employees": n}).Info("org chart seeded")
	return nil
}
