// Package settings manages the admin defaults singleton and the per-user
// settings seeded from it.
package settings

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

type Service struct {
	repo   domain.SettingsRepository
	logger infra.Logger
}

func NewService(repo domain.SettingsRepository, logger infra.Logger) *Service {
	return &Service{repo: repo, logger: infra.Component(logger, "settings")}
}

// Current returns the latest defaults, seeding the built-in ones on first use.
// It never caches so an admin update is visible to the next reader.
func (s *Service) Current(ctx context.Context) (*domain.DefaultSettings, error) {
	d, err := s.repo.GetDefaults(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info().Msg("seeding built-in default settings")
		return s.repo.SeedDefaults(ctx, domain.BuiltinDefaults())
	}
	return d, err
}

// Update applies patch when expectedVersion is still current.
func (s *Service) Update(ctx context.Context, actorID string, expectedVersion int, patch domain.DefaultsPatch) (*domain.DefaultSettings, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if expectedVersion != current.Version {
		return nil, domain.ErrConflict
	}
	next := *current
	if patch.Theme != nil {
		theme := strings.TrimSpace(*patch.Theme)
		if !slices.Contains(domain.SupportedThemes, theme) {
			return nil, domain.NewValidationError("theme", "must be one of: "+strings.Join(domain.SupportedThemes, ", "))
		}
		next.Theme = theme
	}
	if patch.ToolSettings != nil {
		next.ToolSettings = mergeTools(current.ToolSettings, *patch.ToolSettings)
	}
	next.UpdatedBy = actorID
	updated, err := s.repo.UpdateDefaults(ctx, expectedVersion, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("actor", actorID).Int("version", updated.Version).Msg("default settings updated")
	return updated, nil
}

// Reset restores the built-in defaults as a new version.
func (s *Service) Reset(ctx context.Context, actorID string) (*domain.DefaultSettings, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	builtin := domain.BuiltinDefaults()
	builtin.UpdatedBy = actorID
	updated, err := s.repo.UpdateDefaults(ctx, current.Version, builtin)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("actor", actorID).Int("version", updated.Version).Msg("default settings reset")
	return updated, nil
}

// ApplyToUser copies the current defaults into the user's own settings.
func (s *Service) ApplyToUser(ctx context.Context, userID string) (*domain.UserSettings, error) {
	d, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.UpsertUserSettings(ctx, domain.UserSettings{
		UserID:       userID,
		Theme:        d.Theme,
		ToolSettings: d.ToolSettings,
	})
}

// ForUser returns the user's settings, applying the defaults when none exist yet.
func (s *Service) ForUser(ctx context.Context, userID string) (*domain.UserSettings, error) {
	us, err := s.repo.GetUserSettings(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.ApplyToUser(ctx, userID)
	}
	return us, err
}

// mergeTools replaces only the tool sections present in patch.
func mergeTools(base, patch domain.ToolSettings) domain.ToolSettings {
	out := base
	if patch.LookCreator != nil {
		out.LookCreator = patch.LookCreator
	}
	if patch.Copywriter != nil {
		out.Copywriter = patch.Copywriter
	}
	if patch.FinishingStudio != nil {
		out.FinishingStudio = patch.FinishingStudio
	}
	return out
}
