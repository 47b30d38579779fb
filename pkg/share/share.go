package share

import (
	"context"
	"errors"
	"math/rand/v2"
)

var (
	ErrNotFound = errors.New("shared combination not found")
	ErrEmpty    = errors.New("cannot share an empty combination")
	ErrNoKey    = errors.New("cannot find an unused share key")
)

const (
	DefaultKeyLength = 7
	maxKeyAttempts   = 16
)

const keyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Store keeps combinations (lists of section ids) under short random keys
type Store interface {
	// Saves ids under a fresh key and returns it
	Save(ctx context.Context, ids []uint64) (string, error)
	// Returns the ids saved under key, ErrNotFound if there are none
	Load(ctx context.Context, key string) ([]uint64, error)
	// Removes key, removing an absent key is not an error
	Delete(ctx context.Context, key string) error
}

func newKey(length int) string {
	key := make([]byte, length)
	for i := range key {
		key[i] = keyCharset[rand.IntN(len(keyCharset))]
	}
	return string(key)
}

// Draws keys until exists reports an unused one
func freshKey(ctx context.Context, length int, exists func(ctx context.Context, key string) (bool, error)) (string, error) {
	for range maxKeyAttempts {
		key := newKey(length)
		taken, err := exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !taken {
			return key, nil
		}
	}
	return "", ErrNoKey
}
