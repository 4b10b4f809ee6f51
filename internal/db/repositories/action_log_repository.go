package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/models/entities"
)

type ActionLogRepo struct {
	db *sqlx.DB
}

func NewActionLogRepo(db *sqlx.DB) *ActionLogRepo {
	return &ActionLogRepo{db}
}

// Insert appends one entry. CreatedAt defaults to now.
func (r *ActionLogRepo) Insert(ctx context.Context, entry *entities.ActionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(constants.InsertActionLog)
	_, err := r.db.ExecContext(ctx, query,
		entry.UserID,
		entry.Action,
		entry.TargetID,
		entry.Outcome,
		entry.Detail,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert action log: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (r *ActionLogRepo) Recent(ctx context.Context, limit int) ([]entities.ActionLog, error) {
	logs := []entities.ActionLog{}
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(constants.ListRecentActionLogs), limit); err != nil {
		return nil, fmt.Errorf("failed to list action logs: %w", err)
	}
	return logs, nil
}

// ByUser returns one user's newest entries first.
func (r *ActionLogRepo) ByUser(ctx context.Context, userID string, limit int) ([]entities.ActionLog, error) {
	logs := []entities.ActionLog{}
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(constants.ListActionLogsByUser), userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list action logs for %s: %w", userID, err)
	}
	return logs, nil
}

// Ping checks the connection for health reporting.
func (r *ActionLogRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
