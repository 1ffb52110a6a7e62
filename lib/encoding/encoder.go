package encoding

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors returned by Decode.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid token format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrDecryptFailed    = errors.New("encoding: decryption failed")
	ErrNotEncodable     = errors.New("encoding: type does not implement Encodable")
	ErrNotDecodable     = errors.New("encoding: type does not implement Decodable")
)

// Encoder turns embed requests into URL-safe tokens and back.
// It supports two modes:
//   - Signed (default): Base64 + HMAC signature - visible but tamper-proof
//   - Encrypted: AES-256-GCM - fully opaque
type Encoder struct {
	key []byte
	gcm cipher.AEAD
}

// NewEncoder creates a new encoder with the given key.
// Keys shorter than 32 bytes are stretched with SHA-256.
func NewEncoder(key []byte) (*Encoder, error) {
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	if len(key) > 32 {
		key = key[:32]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encoder{
		key: key,
		gcm: gcm,
	}, nil
}

// Encodable is implemented by types that flatten themselves into a field map.
type Encodable interface {
	EncodeFields() map[string]any
}

// Decodable is implemented by types that rebuild themselves from a field map.
type Decodable interface {
	DecodeFields(map[string]any) error
}

// Encode serializes a value and returns an encoded string.
// If opaque is true, the data is encrypted; otherwise it's signed.
func (e *Encoder) Encode(v any, opaque bool) (string, error) {
	enc, ok := v.(Encodable)
	if !ok {
		return "", ErrNotEncodable
	}

	// Sorted keys keep signed tokens stable for the same value.
	var buf bytes.Buffer
	me := msgpack.NewEncoder(&buf)
	me.SetSortMapKeys(true)
	if err := me.Encode(enc.EncodeFields()); err != nil {
		return "", fmt.Errorf("msgpack: %w", err)
	}
	packed := buf.Bytes()

	if opaque {
		return e.encrypt(packed)
	}
	return e.sign(packed), nil
}

// Decode deserializes an encoded string into v.
// If opaque is true, the data is decrypted; otherwise the signature is verified.
func (e *Encoder) Decode(encoded string, opaque bool, v any) error {
	dec, ok := v.(Decodable)
	if !ok {
		return ErrNotDecodable
	}

	var packed []byte
	var err error
	if opaque {
		packed, err = e.decrypt(encoded)
	} else {
		packed, err = e.verify(encoded)
	}
	if err != nil {
		return err
	}

	var data map[string]any
	if err := msgpack.Unmarshal(packed, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return dec.DecodeFields(data)
}

// sign creates a signed (but visible) encoding: base64.signature
func (e *Encoder) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16])
	return b64 + "." + sig
}

func (e *Encoder) verify(encoded string) ([]byte, error) {
	payload, signature, found := strings.Cut(encoded, ".")
	if !found {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	if !hmac.Equal(sig, mac.Sum(nil)[:16]) {
		return nil, ErrSignatureInvalid
	}

	return data, nil
}

func (e *Encoder) encrypt(data []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := e.gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

func (e *Encoder) decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if len(ciphertext) < e.gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	nonce := ciphertext[:e.gcm.NonceSize()]
	plain, err := e.gcm.Open(nil, nonce, ciphertext[e.gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plain, nil
}
