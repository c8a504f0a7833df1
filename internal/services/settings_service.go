package services

import (
	"context"
	"fmt"
	"sync"

	"internship-portal/internal/logging"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"
)

// SettingsService owns the feature-flag record. It is loaded once at startup;
// readers get a snapshot and never hit the store.
type SettingsService struct {
	repo storage.SettingsRepository

	mu      sync.RWMutex
	current models.Settings
}

// NewSettingsService loads the stored flags. A failing load is fatal for the caller.
func NewSettingsService(ctx context.Context, repo storage.SettingsRepository) (*SettingsService, error) {
	s := &SettingsService{repo: repo, current: models.DefaultSettings()}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns a copy of the active flags.
func (s *SettingsService) Current() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the flags from the store.
func (s *SettingsService) Reload(ctx context.Context) (models.Settings, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return models.Settings{}, mapRepoError(ctx, err, "loading settings", nil)
	}
	s.mu.Lock()
	s.current = *stored
	s.mu.Unlock()

	logging.FromContext(ctx).Info("Settings loaded",
		"choice_submission_open", stored.ChoiceSubmissionOpen,
		"preference_editing_open", stored.PreferenceEditingOpen)
	return *stored, nil
}

// Update persists the flags that are set and swaps them in.
func (s *SettingsService) Update(ctx context.Context, req *dto.UpdateSettingsRequest) (models.Settings, error) {
	// held across the save so concurrent updates cannot interleave
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if req.ChoiceSubmissionOpen != nil {
		next.ChoiceSubmissionOpen = *req.ChoiceSubmissionOpen
	}
	if req.PreferenceEditingOpen != nil {
		next.PreferenceEditingOpen = *req.PreferenceEditingOpen
	}
	if err := s.repo.Save(ctx, &next); err != nil {
		return models.Settings{}, fmt.Errorf("failed to save settings: %w", mapRepoError(ctx, err, "saving settings", nil))
	}
	s.current = next

	logging.FromContext(ctx).Info("UpdateSettings: settings changed",
		"choice_submission_open", next.ChoiceSubmissionOpen,
		"preference_editing_open", next.PreferenceEditingOpen)
	return next, nil
}
