package web

import (
	"context"
	"fmt"
	"time"

	"rental-agent/config"
	"rental-agent/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CleanupService removes sessions whose last activity is older than the
// configured retention age.
type CleanupService struct {
	store  *database.PostgresStore
	logger *zap.Logger
}

// NewCleanupService creates a new cleanup service instance
func NewCleanupService(store *database.PostgresStore, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		store:  store,
		logger: logger,
	}
}

// SweepStaleSessions finds and deletes sessions older than maxAge.
// Returns the number of sessions deleted and any error encountered.
func (cs *CleanupService) SweepStaleSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoffTime := time.Now().Add(-maxAge)

	cs.logger.Info("Starting stale session sweep",
		zap.Time("cutoff_time", cutoffTime),
		zap.Duration("max_age", maxAge))

	staleSessions, err := cs.store.GetStaleSessions(ctx, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to get stale sessions: %w", err)
	}

	if len(staleSessions) == 0 {
		cs.logger.Debug("No stale sessions found")
		return 0, nil
	}

	deletedCount := 0
	for _, sessionID := range staleSessions {
		if err := cs.deleteSession(ctx, sessionID); err != nil {
			cs.logger.Error("Failed to delete stale session",
				zap.Error(err),
				zap.String("session_id", sessionID.String()))
			// Continue with other sessions even if one fails
			continue
		}
		deletedCount++
	}

	cs.logger.Info("Stale session sweep completed",
		zap.Int("sessions_deleted", deletedCount),
		zap.Int("sessions_failed", len(staleSessions)-deletedCount))

	return deletedCount, nil
}

func (cs *CleanupService) deleteSession(ctx context.Context, sessionID uuid.UUID) error {
	// Messages cascade with the session row
	if err := cs.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session from database: %w", err)
	}
	return nil
}

// StartSessionCleanup runs the retention sweep on the configured interval
// until the context is canceled.
func StartSessionCleanup(ctx context.Context, cfg *config.Config, cleanupService *CleanupService, logger *zap.Logger) {
	if !cfg.CleanupEnabled {
		logger.Info("Session cleanup disabled by configuration")
		return
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	logger.Info("Session cleanup routine started",
		zap.Duration("interval", cfg.CleanupInterval),
		zap.Duration("retention_age", cfg.SessionRetentionAge))

	for {
		select {
		case <-ticker.C:
			if _, err := cleanupService.SweepStaleSessions(ctx, cfg.SessionRetentionAge); err != nil {
				logger.Error("Session sweep failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Session cleanup routine stopped")
			return
		}
	}
}
