package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/config"
)

func Connect(cfg *config.Config) *pgxpool.Pool {
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	return pool
}
