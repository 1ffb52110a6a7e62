package hxembed

import (
	"errors"
	"fmt"
)

// Sentinel errors for embed operations.
var (
	ErrMissingTarget = errors.New("hxembed: missing target-location attribute")
	ErrInvalidMode   = errors.New("hxembed: invalid mode attribute")
	ErrInvalidTarget = errors.New("hxembed: invalid target-location")
	ErrFetch         = errors.New("hxembed: fetch failed")
	ErrAsset         = errors.New("hxembed: block asset failed")
	ErrUnexpected    = errors.New("hxembed: unexpected composition failure")
	ErrDetached      = errors.New("hxembed: embed detached")
	ErrNoBehavior    = errors.New("hxembed: block has no behavior")
	ErrInvalidToken  = errors.New("hxembed: invalid embed token")
)

// StatusError reports a non-success HTTP response from the remote site.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hxembed: GET %s: status %d", e.URL, e.StatusCode)
}

// Unwrap makes every StatusError match ErrFetch.
func (e *StatusError) Unwrap() error {
	return ErrFetch
}

// IsConfigError checks if err comes from missing or malformed attributes.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingTarget) || errors.Is(err, ErrInvalidMode) || errors.Is(err, ErrInvalidTarget)
}

// IsFetchError checks if err is a plain-content fetch failure.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsAssetError checks if err is a per-block style or behavior failure.
func IsAssetError(err error) bool {
	return errors.Is(err, ErrAsset)
}

// assetError ties a block failure to the block it happened in.
type assetError struct {
	block string
	err   error
}

func (e *assetError) Error() string {
	return fmt.Sprintf("hxembed: block %q: %v", e.block, e.err)
}

func (e *assetError) Unwrap() []error {
	return []error{ErrAsset, e.err}
}
