package tokenstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"krakenws/config"
)

func TestVaultStoreDisabledCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewVaultStore(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewVaultStore: %v", err)
	}

	tok := Token{Value: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Put(ctx, "session-1", tok); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Value != "abc" {
		t.Fatalf("expected round-tripped token, got %+v", got)
	}

	if err := store.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "session-1"); err == nil {
		t.Fatalf("expected error after delete")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	tok := Token{ExpiresAt: now.Add(-time.Second)}
	if !tok.Expired(now) {
		t.Fatalf("expected token with past expiry to be expired")
	}
	tok.ExpiresAt = now.Add(time.Minute)
	if tok.Expired(now) {
		t.Fatalf("expected token with future expiry to not be expired")
	}
}

func TestFileStoreEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.enc.json")

	store, err := NewFileStore(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	tok := Token{Value: "secret-token", ExpiresAt: time.Now().Add(15 * time.Minute)}
	if err := store.Put("session-1", tok); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := NewFileStore(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("reopen NewFileStore: %v", err)
	}
	got, ok := reopened.Get("session-1")
	if !ok || got.Value != "secret-token" {
		t.Fatalf("expected persisted token to survive reopen, got %+v ok=%v", got, ok)
	}
}

func TestFileStoreWrongPassphraseFailsToDecrypt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.enc.json")

	store, err := NewFileStore(path, "right-passphrase")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Put("session-1", Token{Value: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := NewFileStore(path, "wrong-passphrase"); err == nil {
		t.Fatalf("expected decryption to fail with the wrong passphrase")
	}
}

func TestFileStoreDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.enc.json")

	store, err := NewFileStore(path, "pw")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	store.Put("a", Token{Value: "x"})
	store.Delete("a")

	if _, ok := store.Get("a"); ok {
		t.Fatalf("expected token removed after Delete")
	}
}
