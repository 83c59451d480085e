// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of the per-file key derivation salt.
	SaltSize = 32
	// KeySize selects AES-256.
	KeySize = 32
)

// KeyIterations is the PBKDF2-SHA-256 work factor.
var KeyIterations = 600000

// encryptedPrefix marks an encrypted credentials file.
var encryptedPrefix = []byte("TAXEASE-ENC1:")

var (
	// ErrPassphraseRequired is returned when an encrypted file is opened without a passphrase.
	ErrPassphraseRequired = errors.New("credentials file is encrypted: passphrase required")
	// ErrDecryptionFailed is returned for a wrong passphrase or a tampered file.
	ErrDecryptionFailed = errors.New("failed to decrypt credentials: wrong passphrase or corrupt file")
)

// deriveKey derives the file key from a passphrase and salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, KeyIterations, KeySize, sha256.New)
}

func isEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, encryptedPrefix)
}

// sealer encrypts and decrypts with a key cached per salt.
type sealer struct {
	passphrase string
	salt       []byte
	key        []byte
}

func (s *sealer) keyFor(salt []byte) []byte {
	if s.key == nil || !bytes.Equal(s.salt, salt) {
		s.salt = append([]byte(nil), salt...)
		s.key = deriveKey(s.passphrase, salt)
	}
	return s.key
}

// seal returns prefix || base64(salt || nonce || ciphertext+tag).
func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	salt := s.salt
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	gcm, err := newGCM(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	raw := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	raw = append(raw, salt...)
	raw = append(raw, nonce...)
	raw = gcm.Seal(raw, nonce, plaintext, nil)

	out := make([]byte, len(encryptedPrefix)+base64.StdEncoding.EncodedLen(len(raw)))
	copy(out, encryptedPrefix)
	base64.StdEncoding.Encode(out[len(encryptedPrefix):], raw)
	return out, nil
}

// open reverses seal.
func (s *sealer) open(data []byte) ([]byte, error) {
	enc := bytes.TrimSpace(bytes.TrimPrefix(data, encryptedPrefix))
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(enc)))
	n, err := base64.StdEncoding.Decode(raw, enc)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	raw = raw[:n]

	if len(raw) < SaltSize {
		return nil, ErrDecryptionFailed
	}
	salt := raw[:SaltSize]
	gcm, err := newGCM(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	rest := raw[SaltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
