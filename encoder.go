package hxembed

import (
	"errors"
	"fmt"

	"github.com/pthm/hxembed/lib/encoding"
)

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// NewEncoder creates a new token encoder with the given key.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// wrapEncodingError maps encoding package failures onto ErrInvalidToken
// while keeping the cause in the chain.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) ||
		errors.Is(err, encoding.ErrSignatureInvalid) ||
		errors.Is(err, encoding.ErrDecryptFailed) {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return err
}
