package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/sqlinline"
)

// SettingsRepositoryPG implements domain.SettingsRepository.
type SettingsRepositoryPG struct {
	db infra.SQLExecutor
}

func NewSettingsRepository(db infra.SQLExecutor) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{db: db}
}

func (r *SettingsRepositoryPG) GetDefaults(ctx context.Context) (*domain.DefaultSettings, error) {
	return scanDefaults(r.db.QueryRow(ctx, sqlinline.QSelectDefaultSettings))
}

// SeedDefaults inserts d when the singleton is missing and returns whatever row exists afterwards.
func (r *SettingsRepositoryPG) SeedDefaults(ctx context.Context, d domain.DefaultSettings) (*domain.DefaultSettings, error) {
	tools, err := json.Marshal(d.ToolSettings)
	if err != nil {
		return nil, fmt.Errorf("encode tool settings: %w", err)
	}
	if _, err := r.db.Exec(ctx, sqlinline.QSeedDefaultSettings, d.Theme, tools); err != nil {
		return nil, mapDBError(err)
	}
	return r.GetDefaults(ctx)
}

// UpdateDefaults replaces the singleton when its version still equals expectedVersion.
func (r *SettingsRepositoryPG) UpdateDefaults(ctx context.Context, expectedVersion int, d domain.DefaultSettings) (*domain.DefaultSettings, error) {
	tools, err := json.Marshal(d.ToolSettings)
	if err != nil {
		return nil, fmt.Errorf("encode tool settings: %w", err)
	}
	updated, err := scanDefaults(r.db.QueryRow(ctx, sqlinline.QUpdateDefaultSettings, expectedVersion, d.Theme, tools, d.UpdatedBy))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: defaults version %d is stale", domain.ErrConflict, expectedVersion)
	}
	return updated, err
}

func (r *SettingsRepositoryPG) GetUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	return scanUserSettings(r.db.QueryRow(ctx, sqlinline.QSelectUserSettings, userID))
}

func (r *SettingsRepositoryPG) UpsertUserSettings(ctx context.Context, s domain.UserSettings) (*domain.UserSettings, error) {
	tools, err := json.Marshal(s.ToolSettings)
	if err != nil {
		return nil, fmt.Errorf("encode tool settings: %w", err)
	}
	return scanUserSettings(r.db.QueryRow(ctx, sqlinline.QUpsertUserSettings, s.UserID, s.Theme, tools))
}

func scanDefaults(row pgx.Row) (*domain.DefaultSettings, error) {
	var d domain.DefaultSettings
	var tools []byte
	if err := row.Scan(&d.Theme, &tools, &d.Version, &d.UpdatedBy, &d.UpdatedAt); err != nil {
		return nil, mapDBError(err)
	}
	if err := json.Unmarshal(tools, &d.ToolSettings); err != nil {
		return nil, fmt.Errorf("decode tool settings: %w", err)
	}
	return &d, nil
}

func scanUserSettings(row pgx.Row) (*domain.UserSettings, error) {
	var s domain.UserSettings
	var tools []byte
	if err := row.Scan(&s.UserID, &s.Theme, &tools, &s.UpdatedAt); err != nil {
		return nil, mapDBError(err)
	}
	if err := json.Unmarshal(tools, &s.ToolSettings); err != nil {
		return nil, fmt.Errorf("decode tool settings: %w", err)
	}
	return &s, nil
}

var _ domain.SettingsRepository = (*SettingsRepositoryPG)(nil)
