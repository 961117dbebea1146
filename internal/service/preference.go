// Package service contains the business logic layer of the runtime.
//
// PreferenceService is the durable half of the preference store: it validates
// keys and values, answers unset keys with their documented defaults and
// persists through a repository.PreferenceRepository. Applying a value to a
// live page is the page session's job.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/repository"
)

// PreferenceService handles viewer preferences.
type PreferenceService struct {
	repo   repository.PreferenceRepository
	logger *slog.Logger
}

// NewPreferenceService creates a PreferenceService over repo.
func NewPreferenceService(repo repository.PreferenceRepository, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{
		repo:   repo,
		logger: logger,
	}
}

// DefaultSidebar returns the sidebar state used when the viewer never chose
// one: visible on wide layouts, hidden otherwise.
func DefaultSidebar(viewportWidth int) string {
	if viewportWidth > model.SidebarBreakpoint {
		return model.SidebarVisible
	}
	return model.SidebarHidden
}

// Get returns the viewer's value for key, or the key's default.
//
// The sidebar default depends on the layout, so the caller passes the current
// viewport width; it is ignored for every other key.
func (s *PreferenceService) Get(ctx context.Context, viewerID, key string, viewportWidth int) (string, error) {
	key = strings.TrimSpace(key)
	if err := validateKey(key); err != nil {
		return "", err
	}

	if viewerID != "" {
		pref, err := s.repo.Get(ctx, viewerID, key)
		switch {
		case err == nil:
			return pref.Value, nil
		case !errors.Is(err, apperror.ErrNotFound):
			s.logger.Error("failed to read preference",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return "", fmt.Errorf("reading preference: %w", err)
		}
	}

	switch key {
	case model.PreferenceTheme:
		return model.ThemeLight, nil
	default:
		return DefaultSidebar(viewportWidth), nil
	}
}

// Set validates and persists a value.
func (s *PreferenceService) Set(ctx context.Context, viewerID, key, value string) (*model.Preference, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if viewerID == "" {
		return nil, apperror.ValidationFailed("viewer", "viewer identity is required")
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := validateValue(key, value); err != nil {
		return nil, err
	}

	pref := &model.Preference{ViewerID: viewerID, Key: key, Value: value}
	if err := s.repo.Set(ctx, pref); err != nil {
		s.logger.Error("failed to save preference",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving preference: %w", err)
	}

	s.logger.Debug("preference saved",
		slog.String("viewer", viewerID),
		slog.String("key", key),
		slog.String("value", value),
	)

	return pref, nil
}

// Reset forgets the viewer's value for key so reads fall back to the default.
// Resetting a key that was never set is not an error.
func (s *PreferenceService) Reset(ctx context.Context, viewerID, key string) error {
	key = strings.TrimSpace(key)

	if viewerID == "" {
		return apperror.ValidationFailed("viewer", "viewer identity is required")
	}
	if err := validateKey(key); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, viewerID, key)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		s.logger.Error("failed to reset preference",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("resetting preference: %w", err)
	}

	s.logger.Debug("preference reset",
		slog.String("viewer", viewerID),
		slog.String("key", key),
	)
	return nil
}

// List returns every preference the viewer explicitly set.
func (s *PreferenceService) List(ctx context.Context, viewerID string) ([]model.Preference, error) {
	if viewerID == "" {
		return []model.Preference{}, nil
	}
	prefs, err := s.repo.List(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	return prefs, nil
}

func validateKey(key string) error {
	switch key {
	case model.PreferenceTheme, model.PreferenceSidebar:
		return nil
	case "":
		return apperror.ValidationFailed("key", "preference key is required")
	}
	return apperror.ValidationFailed("key", fmt.Sprintf("unknown preference %q", key))
}

func validateValue(key, value string) error {
	switch key {
	case model.PreferenceTheme:
		if !slices.Contains(model.Themes, value) {
			return apperror.ValidationFailed("value",
				fmt.Sprintf("unknown theme %q: must be one of %s", value, strings.Join(model.Themes, ", ")))
		}
	case model.PreferenceSidebar:
		if value != model.SidebarVisible && value != model.SidebarHidden {
			return apperror.ValidationFailed("value", "sidebar must be visible or hidden")
		}
	}
	return nil
}
