package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pickup-dispatch/dispatch/internal/config"
	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/db/repositories"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/metrics"
	"pickup-dispatch/dispatch/internal/providers"
)

// SettingsStore is durable key/value storage.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ClientFactory builds a dispatch client bound to one credential.
type ClientFactory func(apiKey string) providers.DispatchAPI

// NewClientFactory returns a factory producing DispatchAPIProviders for cfg.
func NewClientFactory(cfg config.DispatchConfig, m *metrics.MetricsRegistry) ClientFactory {
	return func(apiKey string) providers.DispatchAPI {
		return providers.NewDispatchAPIProvider(providers.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            apiKey,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			Metrics:           m,
		})
	}
}

// CredentialService keeps the API credential under a fixed key.
// Storing a new credential never touches clients that already exist.
type CredentialService struct {
	store   SettingsStore
	factory ClientFactory
}

func NewCredentialService(store SettingsStore, factory ClientFactory) *CredentialService {
	return &CredentialService{store: store, factory: factory}
}

// SetCredential persists key immediately.
func (s *CredentialService) SetCredential(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := s.store.Put(ctx, constants.CredentialKey, key); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	logging.Info("Credential stored")
	return nil
}

// Credential returns the stored key, or "" when none was ever set.
func (s *CredentialService) Credential(ctx context.Context) (string, error) {
	key, err := s.store.Get(ctx, constants.CredentialKey)
	if errors.Is(err, repositories.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return key, nil
}

// ClearCredential forgets the stored key.
func (s *CredentialService) ClearCredential(ctx context.Context) error {
	return s.store.Delete(ctx, constants.CredentialKey)
}

// NewClient reads the stored credential once and builds a client from it.
// A missing credential still yields a client; the backend decides.
func (s *CredentialService) NewClient(ctx context.Context) (providers.DispatchAPI, error) {
	key, err := s.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		logging.Warn("No credential stored, calls will be unauthenticated")
	}
	return s.factory(key), nil
}
