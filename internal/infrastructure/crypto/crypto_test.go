package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "01234567890123456789012345678901"

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "32 byte key", key: testKey},
		{name: "short key", key: "too-short", wantErr: ErrInvalidKey},
		{name: "empty key", key: "", wantErr: ErrInvalidKey},
		{name: "long key", key: testKey + "x", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewEncryptor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && enc == nil {
				t.Fatal("NewEncryptor() returned nil")
			}
		})
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	if err != nil {
		t.Fatalf("NewEncryptor() failed: %v", err)
	}

	secrets := map[string]string{
		"vendor secret": "9f1c2e7a-5b1d-4c8e-a0e4-7d3b2f6a1c90",
		"unicode":       "segredo do usuário ☕",
		"long":          strings.Repeat("user-secret ", 500),
	}

	for name, plaintext := range secrets {
		t.Run(name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("Encrypt() failed: %v", err)
			}
			if ciphertext == plaintext {
				t.Fatal("Encrypt() returned plaintext")
			}

			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() failed: %v", err)
			}
			if decrypted != plaintext {
				t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
			}
		})
	}
}

func TestEncryptDecrypt_EmptyString(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	ciphertext, err := enc.Encrypt("")
	if err != nil || ciphertext != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want empty string, nil", ciphertext, err)
	}

	plaintext, err := enc.Decrypt("")
	if err != nil || plaintext != "" {
		t.Errorf("Decrypt(\"\") = %q, %v; want empty string, nil", plaintext, err)
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	c1, _ := enc.Encrypt("same secret")
	c2, _ := enc.Encrypt("same secret")

	if c1 == c2 {
		t.Error("Encrypt() produced identical ciphertexts for the same secret")
	}
}

func TestDecrypt_Rejects(t *testing.T) {
	enc, _ := NewEncryptor(testKey)
	other, _ := NewEncryptor("98765432109876543210987654321098")

	sealed, _ := enc.Encrypt("stored secret")
	foreign, _ := other.Encrypt("stored secret")

	tests := []struct {
		name  string
		input string
	}{
		{name: "tampered", input: sealed[:len(sealed)-2] + "XX"},
		{name: "invalid base64", input: "not-valid-base64!!!"},
		{name: "shorter than nonce", input: "YQ=="},
		{name: "wrong key", input: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.input); err == nil {
				t.Errorf("Decrypt(%q) succeeded, want error", tt.input)
			}
		})
	}
}
