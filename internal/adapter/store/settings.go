package store

import (
	"context"
	"strconv"

	"launchdock/internal/domain"
)

// Settings keys for the AI subsystem.
const (
	keyAIEnabled       = "ai_enabled"
	keyAIEndpointURL   = "ai_endpoint_url"
	keyAIAPIKey        = "ai_api_key"
	keyAIDefaultModel  = "ai_default_model"
	keyAIMaxConcurrent = "ai_max_concurrent_agents"
)

// Defaults applied when a settings row is absent.
const (
	defaultEndpointURL   = "http://localhost:1234"
	defaultMaxConcurrent = 1
)

// AISettings reads the global AI settings, falling back to defaults for
// missing keys. The master switch defaults to off.
func (s *Store) AISettings(ctx context.Context) (domain.AISettings, error) {
	settings := domain.AISettings{
		EndpointURL:         defaultEndpointURL,
		MaxConcurrentAgents: defaultMaxConcurrent,
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM settings WHERE key IN (?, ?, ?, ?, ?)",
		keyAIEnabled, keyAIEndpointURL, keyAIAPIKey, keyAIDefaultModel, keyAIMaxConcurrent,
	)
	if err != nil {
		return settings, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, err
		}
		switch key {
		case keyAIEnabled:
			settings.Enabled = value == "true"
		case keyAIEndpointURL:
			settings.EndpointURL = value
		case keyAIAPIKey:
			settings.APIKey = value
		case keyAIDefaultModel:
			settings.DefaultModel = value
		case keyAIMaxConcurrent:
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				settings.MaxConcurrentAgents = n
			}
		}
	}
	return settings, rows.Err()
}

// SetAIEnabled toggles the AI master switch.
func (s *Store) SetAIEnabled(ctx context.Context, enabled bool) error {
	return s.setSetting(ctx, keyAIEnabled, strconv.FormatBool(enabled))
}

// SetAIEndpointURL updates the chat backend endpoint.
func (s *Store) SetAIEndpointURL(ctx context.Context, url string) error {
	return s.setSetting(ctx, keyAIEndpointURL, url)
}

// SetAIAPIKey updates the bearer token sent to the chat backend.
func (s *Store) SetAIAPIKey(ctx context.Context, key string) error {
	return s.setSetting(ctx, keyAIAPIKey, key)
}

// SetAIDefaultModel updates the fallback model id.
func (s *Store) SetAIDefaultModel(ctx context.Context, model string) error {
	return s.setSetting(ctx, keyAIDefaultModel, model)
}

// SetAIMaxConcurrent updates the admission cap.
func (s *Store) SetAIMaxConcurrent(ctx context.Context, n int) error {
	return s.setSetting(ctx, keyAIMaxConcurrent, strconv.Itoa(n))
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
