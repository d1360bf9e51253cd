package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "rental-agent/errors"
	"rental-agent/web/types"

	"github.com/google/uuid"
)

// AppendMessage appends a message to a session, creating the session on first
// use. The session upsert and counter increment run in one transaction with
// the message insert, so concurrent appends for the same session never race a
// read-then-write window.
func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, metadata map[string]string, userID *uuid.UUID) (uuid.UUID, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal message metadata: %w", err)
	}

	var userIDValue sql.NullString
	if userID != nil {
		userIDValue = sql.NullString{String: userID.String(), Valid: true}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
        INSERT INTO sessions (id, user_id, total_messages, created_at, last_active)
        VALUES ($1, $2, 1, NOW(), NOW())
        ON CONFLICT (id)
        DO UPDATE SET total_messages = sessions.total_messages + 1, last_active = NOW()
    `
	if _, err := tx.ExecContext(ctx, upsert, sessionID, userIDValue); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert session: %w", err)
	}

	messageID := uuid.New()
	insert := `
        INSERT INTO messages (id, session_id, role, content, created_at, metadata)
        VALUES ($1, $2, $3, $4, NOW(), $5)
    `
	if _, err := tx.ExecContext(ctx, insert, messageID, sessionID, role, content, string(metaJSON)); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit append transaction: %w", err)
	}
	return messageID, nil
}

// GetHistory returns the chronologically last `limit` messages for a session.
// The window is a suffix: with more than `limit` messages stored, the oldest
// ones fall outside it.
func (s *PostgresStore) GetHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]types.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
        SELECT id, session_id, role, content, created_at, metadata
        FROM messages
        WHERE session_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
	rows, err := s.DB.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		var metaJSON []byte
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &msg.Metadata); err != nil {
				s.logger.Warn("Skipping malformed message metadata")
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; flip to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetSessionByID loads a single session record.
func (s *PostgresStore) GetSessionByID(ctx context.Context, sessionID uuid.UUID) (types.Session, error) {
	query := `
        SELECT id, user_id, title, total_messages, created_at, last_active, metadata
        FROM sessions
        WHERE id = $1
    `
	var session types.Session
	var userIDValue sql.NullString
	var metaJSON []byte
	err := s.DB.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID, &userIDValue, &session.Title, &session.TotalMessages,
		&session.CreatedAt, &session.LastActive, &metaJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
		}
		return types.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	if userIDValue.Valid {
		if parsed, err := uuid.Parse(userIDValue.String); err == nil {
			session.UserID = &parsed
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &session.Metadata); err != nil {
			s.logger.Warn("Skipping malformed session metadata")
		}
	}
	return session, nil
}

// MergeSessionMetadata shallow-merges key/value pairs into the session's
// metadata without touching the message list.
func (s *PostgresStore) MergeSessionMetadata(ctx context.Context, sessionID uuid.UUID, patch map[string]string) error {
	if len(patch) == 0 {
		return nil
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata patch: %w", err)
	}

	query := `UPDATE sessions SET metadata = metadata || $2::jsonb WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, sessionID, string(patchJSON)); err != nil {
		return fmt.Errorf("failed to merge session metadata: %w", err)
	}
	return nil
}

// SetSessionTitle stores a generated title, but never overwrites one that is
// already set.
func (s *PostgresStore) SetSessionTitle(ctx context.Context, sessionID uuid.UUID, title string) error {
	query := `UPDATE sessions SET title = $2 WHERE id = $1 AND title = ''`
	if _, err := s.DB.ExecContext(ctx, query, sessionID, title); err != nil {
		return fmt.Errorf("failed to set session title: %w", err)
	}
	return nil
}

// DeleteSession removes a session; messages cascade.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetStaleSessions returns IDs of sessions whose last activity is older than
// the cutoff. Used by the retention sweep.
func (s *PostgresStore) GetStaleSessions(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM sessions WHERE last_active < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan stale session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
