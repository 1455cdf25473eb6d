// Package tokenstore persists the websockets authentication token obtained
// from internal/krakenrest.GetWebSocketsToken, so a restarted process can
// resume a private session without a fresh REST round-trip before the
// token's TTL elapses. Two backends are offered: a Vault KV-v2 store for
// production, and a PBKDF2+AES-256-GCM encrypted file for local use when
// Vault is unavailable. Grounded on
// _examples/koshedutech-binance-trading-app/internal/vault/client.go's
// Client (cache-then-read-through shape, path layout, config-gated
// Enabled flag).
package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"

	"krakenws/config"
)

// Token is a cached websockets token plus the wall-clock time it expires.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer usable.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// VaultStore is a KV-v2-backed Token store, shaped after the teacher's
// vault.Client: an in-memory cache in front of Vault reads, a disabled mode
// that degrades to cache-only storage, and the same
// mountPath/data-or-metadata path layout.
type VaultStore struct {
	client *api.Client
	cfg    config.VaultConfig

	mu    sync.RWMutex
	cache map[string]Token
}

// NewVaultStore builds a VaultStore. When cfg.Enabled is false the store
// degrades to an in-memory cache, matching the teacher's disabled-vault
// fallback used for local development.
func NewVaultStore(cfg config.VaultConfig) (*VaultStore, error) {
	if !cfg.Enabled {
		return &VaultStore{cfg: cfg, cache: make(map[string]Token)}, nil
	}

	vc := api.DefaultConfig()
	vc.Address = cfg.Address
	client, err := api.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: new vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultStore{client: client, cfg: cfg, cache: make(map[string]Token)}, nil
}

// Put stores a token under sessionID.
func (s *VaultStore) Put(ctx context.Context, sessionID string, tok Token) error {
	if !s.cfg.Enabled {
		s.mu.Lock()
		s.cache[sessionID] = tok
		s.mu.Unlock()
		return nil
	}

	data := map[string]interface{}{
		"data": map[string]interface{}{
			"token":      tok.Value,
			"expires_at": tok.ExpiresAt.Format(time.RFC3339),
		},
	}
	if _, err := s.client.Logical().WriteWithContext(ctx, s.dataPath(sessionID), data); err != nil {
		return fmt.Errorf("tokenstore: write: %w", err)
	}

	s.mu.Lock()
	s.cache[sessionID] = tok
	s.mu.Unlock()
	return nil
}

// Get retrieves a token by sessionID, checking the in-memory cache first.
func (s *VaultStore) Get(ctx context.Context, sessionID string) (Token, error) {
	s.mu.RLock()
	if cached, ok := s.cache[sessionID]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	if !s.cfg.Enabled {
		return Token{}, fmt.Errorf("tokenstore: %q not found", sessionID)
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, s.dataPath(sessionID))
	if err != nil {
		return Token{}, fmt.Errorf("tokenstore: read: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return Token{}, fmt.Errorf("tokenstore: %q not found", sessionID)
	}
	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return Token{}, fmt.Errorf("tokenstore: malformed secret for %q", sessionID)
	}

	value, _ := inner["token"].(string)
	expiresRaw, _ := inner["expires_at"].(string)
	expiresAt, err := time.Parse(time.RFC3339, expiresRaw)
	if err != nil {
		return Token{}, fmt.Errorf("tokenstore: bad expiry: %w", err)
	}
	tok := Token{Value: value, ExpiresAt: expiresAt}

	s.mu.Lock()
	s.cache[sessionID] = tok
	s.mu.Unlock()
	return tok, nil
}

// Delete removes a token.
func (s *VaultStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.cache, sessionID)
	s.mu.Unlock()

	if !s.cfg.Enabled {
		return nil
	}
	if _, err := s.client.Logical().DeleteWithContext(ctx, s.metadataPath(sessionID)); err != nil {
		return fmt.Errorf("tokenstore: delete: %w", err)
	}
	return nil
}

func (s *VaultStore) dataPath(sessionID string) string {
	return fmt.Sprintf("%s/data/%s/%s", s.cfg.MountPath, s.cfg.SecretPath, sessionID)
}

func (s *VaultStore) metadataPath(sessionID string) string {
	return fmt.Sprintf("%s/metadata/%s/%s", s.cfg.MountPath, s.cfg.SecretPath, sessionID)
}
