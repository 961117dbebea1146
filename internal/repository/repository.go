// Package repository declares the storage interfaces the services depend on.
package repository

import (
	"context"

	"github.com/sakif/docrunner/internal/model"
)

// PreferenceRepository persists viewer preferences. Get returns an
// apperror.ErrNotFound error when the viewer never set the key.
type PreferenceRepository interface {
	Get(ctx context.Context, viewerID, key string) (*model.Preference, error)
	Set(ctx context.Context, pref *model.Preference) error
	List(ctx context.Context, viewerID string) ([]model.Preference, error)
	Delete(ctx context.Context, viewerID, key string) error
}
