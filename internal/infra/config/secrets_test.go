package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"testing"
)

// encryptValue produces an "enc:" payload (without the prefix) that
// DecryptValue accepts.
func encryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

func TestDecryptSecretsLeavesPlainValues(t *testing.T) {
	cfg := Defaults()
	cfg.Search.APIKey = "plain-key"
	cfg.LLM.APIKey = "sk-plain"

	if err := decryptSecrets(cfg, "pw"); err != nil {
		t.Fatalf("decryptSecrets: %v", err)
	}
	if cfg.Search.APIKey != "plain-key" || cfg.LLM.APIKey != "sk-plain" {
		t.Errorf("plain values changed: %q %q", cfg.Search.APIKey, cfg.LLM.APIKey)
	}
}

func TestDecryptSecretsBothKeys(t *testing.T) {
	search, err := encryptValue("serper", "pw")
	if err != nil {
		t.Fatal(err)
	}
	llm, err := encryptValue("openai", "pw")
	if err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	cfg.Search.APIKey = "enc:" + search
	cfg.LLM.APIKey = "enc:" + llm

	if err := decryptSecrets(cfg, "pw"); err != nil {
		t.Fatalf("decryptSecrets: %v", err)
	}
	if cfg.Search.APIKey != "serper" || cfg.LLM.APIKey != "openai" {
		t.Errorf("got %q %q", cfg.Search.APIKey, cfg.LLM.APIKey)
	}
}
