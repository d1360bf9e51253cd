package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

type PostgresStore struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(connStr string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to the database")
	return &PostgresStore{DB: db, logger: logger}, nil
}

// EnsureSchema creates the required tables if they do not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS listings (
            id UUID PRIMARY KEY,
            legacy_id BIGINT UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            neighborhood_overview TEXT NOT NULL DEFAULT '',
            property_type TEXT NOT NULL DEFAULT '',
            room_type TEXT NOT NULL DEFAULT '',
            neighbourhood TEXT NOT NULL DEFAULT '',
            market TEXT NOT NULL DEFAULT '',
            country TEXT NOT NULL DEFAULT '',
            price NUMERIC NOT NULL DEFAULT 0,
            bedrooms INT NOT NULL DEFAULT 0,
            bathrooms NUMERIC NOT NULL DEFAULT 0,
            accommodates INT NOT NULL DEFAULT 0,
            review_score NUMERIC NOT NULL DEFAULT 0,
            host_is_superhost BOOLEAN NOT NULL DEFAULT FALSE,
            instant_bookable BOOLEAN NOT NULL DEFAULT FALSE,
            amenities TEXT[] NOT NULL DEFAULT '{}'::TEXT[],
            embedding vector(768)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_listings_market ON listings(market)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_embedding ON listings
            USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS sessions (
            id UUID PRIMARY KEY,
            user_id UUID,
            title TEXT NOT NULL DEFAULT '',
            total_messages INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            metadata JSONB NOT NULL DEFAULT '{}'::jsonb
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_active ON sessions(last_active DESC)`,
		`CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            session_id UUID REFERENCES sessions(id) ON DELETE CASCADE,
            role TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            metadata JSONB NOT NULL DEFAULT '{}'::jsonb
        )`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_created_at ON messages(session_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}
