package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/infrastructure/adapter/memory"
	"github.com/tripdesk/tripdesk/infrastructure/adapter/postgres"
	"github.com/tripdesk/tripdesk/infrastructure/config"
	"github.com/tripdesk/tripdesk/infrastructure/orgchart"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

type storage struct {
	employees     outbound.EmployeeRepository
	requests      outbound.TravelRequestRepository
	conversations outbound.ConversationRepository
	notifications outbound.NotificationStore
	ping          func(ctx context.Context) error
	close         func() error
}

func openStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn(ctx, "Using in-memory storage; data is lost on restart", nil)
		return &storage{
			employees:     memory.NewEmployeeRepository(),
			requests:      memory.NewTravelRequestRepository(),
			conversations: memory.NewConversationRepository(),
			notifications: memory.NewNotificationStore(),
			ping:          func(context.Context) error { return nil },
			close:         func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info(ctx, "Database connection established", nil)

	return &storage{
		employees:     postgres.NewEmployeeRepository(db),
		requests:      postgres.NewTravelRequestRepository(db),
		conversations: postgres.NewConversationRepository(db),
		notifications: postgres.NewNotificationStore(db),
		ping:          db.PingContext,
		close:         db.Close,
	}, nil
}

// openRedis returns nil when REDIS_URL is unset or unreachable; callers fall
// back to in-process locks and counters.
func openRedis(ctx context.Context, url string, log logger.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Error(ctx, "Invalid REDIS_URL, continuing without redis", err, nil)
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error(ctx, "Redis unreachable, continuing without redis", err, nil)
		client.Close()
		return nil
	}
	log.Info(ctx, "Redis connection established", nil)
	return client
}

// seedOrgChart loads ORG_FILE into the directory. Used with the memory driver.
func seedOrgChart(ctx context.Context, path string, repo outbound.EmployeeRepository, hasher outbound.PasswordService, log logger.Logger) error {
	if path == "" {
		return nil
	}
	records, err := orgchart.LoadFile(path)
	if err != nil {
		return err
	}
	n, err := orgchart.Seed(ctx, repo, hasher, records, time.Now().UTC())
	if err != nil {
		return err
	}
	log.Info(ctx, "Org chart loaded", map[string]interface{}{"file": path, "employees": n})
	return nil
}
