package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/sqlinline"
)

const ProviderGemini = "gemini"

// ErrMissingKey is returned when neither the environment nor the database holds a key.
var ErrMissingKey = errors.New("credentials: gemini api key not configured")

// Store reads and writes provider tokens kept in integration_tokens.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// Token returns the trimmed token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, map[string]any{"rotatedAt": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, provider, token, raw)
	return err
}

// KeySource resolves the Gemini key per call so a rotated key is picked up
// without restarting the worker. A key set in the environment wins.
type KeySource struct {
	envKey string
	store  *Store
}

func NewKeySource(envKey string, store *Store) *KeySource {
	return &KeySource{envKey: strings.TrimSpace(envKey), store: store}
}

func (k *KeySource) APIKey(ctx context.Context) (string, error) {
	if k.envKey != "" {
		return k.envKey, nil
	}
	if k.store == nil {
		return "", ErrMissingKey
	}
	key, err := k.store.GeminiAPIKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrMissingKey
	}
	return key, nil
}
