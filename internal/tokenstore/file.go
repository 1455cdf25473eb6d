package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltSize         = 16
	keySize          = 32 // AES-256
)

// FileStore is the local-development fallback when Vault is unavailable: an
// AES-256-GCM encrypted JSON file keyed by PBKDF2(passphrase, salt). The
// cipher usage follows
// _examples/koshedutech-binance-trading-app/internal/apikeys/service.go's
// decryptKey (AES-256-GCM, nonce-prefixed ciphertext, base64 envelope); key
// derivation adds PBKDF2-SHA256 in place of that file's fixed/padded key so
// a human-chosen passphrase can derive the AES key instead of requiring a
// raw 32-byte secret.
type FileStore struct {
	path       string
	passphrase string

	mu     sync.Mutex
	tokens map[string]Token
}

type fileEnvelope struct {
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
}

// NewFileStore opens (or initializes) an encrypted token file at path,
// decrypting its contents with passphrase.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	s := &FileStore{path: path, passphrase: passphrase, tokens: make(map[string]Token)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: read %s: %w", path, err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("tokenstore: decode envelope: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: decode salt: %w", err)
	}
	plaintext, err := decryptWithPassphrase(passphrase, salt, env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: decrypt: %w", err)
	}

	if err := json.Unmarshal(plaintext, &s.tokens); err != nil {
		return nil, fmt.Errorf("tokenstore: decode tokens: %w", err)
	}
	return s, nil
}

// Put stores a token and persists the file immediately.
func (s *FileStore) Put(sessionID string, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = tok
	return s.flushLocked()
}

// Get retrieves a token by sessionID.
func (s *FileStore) Get(sessionID string) (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[sessionID]
	return tok, ok
}

// Delete removes a token and persists the file.
func (s *FileStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	plaintext, err := json.Marshal(s.tokens)
	if err != nil {
		return fmt.Errorf("tokenstore: encode tokens: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("tokenstore: generate salt: %w", err)
	}

	ciphertext, err := encryptWithPassphrase(s.passphrase, salt, plaintext)
	if err != nil {
		return fmt.Errorf("tokenstore: encrypt: %w", err)
	}

	env := fileEnvelope{Salt: base64.StdEncoding.EncodeToString(salt), Ciphertext: ciphertext}
	out, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("tokenstore: encode envelope: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore: mkdir: %w", err)
	}
	return os.WriteFile(s.path, out, 0o600)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

func encryptWithPassphrase(passphrase string, salt, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decryptWithPassphrase(passphrase string, salt []byte, ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, body := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, body, nil)
}
