package translationRepository

import (
	"context"
	"database/sql"
	"time"

	"AccessAI/internal/entity"
	contextPkg "AccessAI/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type HistoryDB struct {
	ID        sql.NullString `db:"id"`
	Input     sql.NullString `db:"input"`
	Output    sql.NullString `db:"output"`
	Mode      sql.NullString `db:"mode"`
	CreatedAt sql.NullInt64  `db:"created_at"`
}

func (r *historyRepository) CreateHistory(ctx context.Context, entry entity.History) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":         entry.ID,
		"input":      entry.Input,
		"output":     entry.Output,
		"mode":       entry.Mode,
		"created_at": entry.CreatedAt.UnixMilli(),
	}

	query, args, err := sqlx.Named(queryCreateHistory, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateHistory")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"mode":       entry.Mode,
			"error":      err.Error(),
		}).Error("Database error when creating history entry")
		return err
	}

	return nil
}

// GetLatestHistory returns up to limit entries, newest first. An empty mode
// means every mode.
func (r *historyRepository) GetLatestHistory(ctx context.Context, mode string, limit int) ([]entity.History, error) {
	requestID := contextPkg.GetRequestID(ctx)

	q := queryGetLatestHistory
	argsKV := map[string]interface{}{
		"limit": limit,
	}
	if mode != "" {
		q = queryGetLatestHistoryByMode
		argsKV["mode"] = mode
	}

	query, args, err := sqlx.Named(q, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetLatestHistory named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []HistoryDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when fetching history")
		return nil, err
	}

	entries := make([]entity.History, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, r.makeHistory(row))
	}
	return entries, nil
}

func (r *historyRepository) makeHistory(row HistoryDB) entity.History {
	return entity.History{
		ID:        row.ID.String,
		Input:     row.Input.String,
		Output:    row.Output.String,
		Mode:      row.Mode.String,
		CreatedAt: time.UnixMilli(row.CreatedAt.Int64),
	}
}
