// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package credentials

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24

	// sealPrefix marks sealed values so plaintext written before a key was
	// configured can still be read.
	sealPrefix = "sb1:"
)

var (
	// ErrSealedValue is returned when a sealed value cannot be opened.
	ErrSealedValue = errors.New("sealed credential cannot be opened")

	hkdfInfo = []byte("trailatlas-credentials")
)

// Sealer encrypts values with NaCl secretbox.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the secretbox key from a base64 encoded master key of at
// least 32 bytes.
func NewSealer(masterKey string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("decode credentials secret key: %w", err)
	}
	if len(raw) < keySize {
		return nil, fmt.Errorf("credentials secret key must be at least %d bytes, got %d", keySize, len(raw))
	}

	s := &Sealer{}
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, hkdfInfo), s.key[:]); err != nil {
		return nil, fmt.Errorf("derive credentials key: %w", err)
	}
	return s, nil
}

// Seal encrypts plaintext. The empty string is returned unchanged.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal. Values without the seal prefix are
// returned as-is.
func (s *Sealer) Open(value string) (string, error) {
	if len(value) < len(sealPrefix) || value[:len(sealPrefix)] != sealPrefix {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(value[len(sealPrefix):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSealedValue, err)
	}
	if len(data) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: too short", ErrSealedValue)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	out, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedValue
	}
	return string(out), nil
}

// GenerateSecretKey returns a random base64 key suitable for
// credentials.secret_key.
func GenerateSecretKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

type sealedStore struct {
	Store
	sealer *Sealer
}

// Sealed wraps backend so values are sealed on write and opened on read.
func Sealed(backend Store, sealer *Sealer) Store {
	return &sealedStore{Store: backend, sealer: sealer}
}

func (s *sealedStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.sealer.Open(v)
}

func (s *sealedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.Store.Set(ctx, key, sealed)
}
