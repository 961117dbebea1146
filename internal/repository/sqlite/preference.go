package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/repository"
)

var _ repository.PreferenceRepository = (*DB)(nil)

// Get returns one preference of a viewer.
//
// sql.ErrNoRows is translated to apperror.NotFound: an unset preference is
// an expected state the service answers with a default.
func (db *DB) Get(ctx context.Context, viewerID, key string) (*model.Preference, error) {
	pref := model.Preference{ViewerID: viewerID, Key: key}

	err := db.conn.QueryRowContext(ctx,
		`SELECT value, updated_at
		 FROM preferences
		 WHERE viewer_id = ? AND key = ?`,
		viewerID, key,
	).Scan(&pref.Value, &pref.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("preference", key)
		}
		return nil, fmt.Errorf("sqlite: getting preference %s: %w", key, err)
	}

	return &pref, nil
}

// Set inserts or overwrites a preference. UpdatedAt is set on the caller's value.
func (db *DB) Set(ctx context.Context, pref *model.Preference) error {
	pref.UpdatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO preferences (viewer_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (viewer_id, key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		pref.ViewerID,
		pref.Key,
		pref.Value,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting preference %s: %w", pref.Key, err)
	}

	return nil
}

// List returns every preference of a viewer ordered by key.
func (db *DB) List(ctx context.Context, viewerID string) ([]model.Preference, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key, value, updated_at
		 FROM preferences
		 WHERE viewer_id = ?
		 ORDER BY key`,
		viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing preferences: %w", err)
	}
	defer rows.Close()

	prefs := make([]model.Preference, 0, 2)
	for rows.Next() {
		p := model.Preference{ViewerID: viewerID}
		if err := rows.Scan(&p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating preferences: %w", err)
	}

	return prefs, nil
}

// Delete removes a preference so that reads fall back to the default again.
func (db *DB) Delete(ctx context.Context, viewerID, key string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM preferences WHERE viewer_id = ? AND key = ?`,
		viewerID, key,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting preference %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("preference", key)
	}

	return nil
}
