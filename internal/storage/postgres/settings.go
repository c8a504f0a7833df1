package postgres

import (
	"context"
	"errors"
	"fmt"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/jackc/pgx/v5"
)

// SettingsRepo reads and writes the single app_settings row seeded by migration.
type SettingsRepo struct {
	db Querier
}

func NewSettingsRepo(db Querier) *SettingsRepo {
	return &SettingsRepo{db: db}
}

var _ storage.SettingsRepository = (*SettingsRepo)(nil)

func (r *SettingsRepo) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := r.db.QueryRow(ctx, `
		SELECT choice_submission_open, preference_editing_open, updated_at FROM app_settings WHERE id = 1`).
		Scan(&s.ChoiceSubmissionOpen, &s.PreferenceEditingOpen, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) Save(ctx context.Context, s *models.Settings) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO app_settings (id, choice_submission_open, preference_editing_open, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET choice_submission_open = EXCLUDED.choice_submission_open,
			preference_editing_open = EXCLUDED.preference_editing_open, updated_at = NOW()
		RETURNING updated_at`, s.ChoiceSubmissionOpen, s.PreferenceEditingOpen).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
