package email

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyBuilt indicates that Build was called on a builder that has
	// already produced its message. The condition is permanent for the
	// builder instance.
	ErrAlreadyBuilt = errors.New("message already built")

	// ErrMissingHost indicates that the host name was not set at a point
	// where it is required (building, session acquisition, or reading it back).
	ErrMissingHost = errors.New("host name not set")

	// ErrInvalidHeader indicates an empty header name or value.
	ErrInvalidHeader = errors.New("header name and value must be non-empty")

	// ErrNoAddresses indicates that an address accumulation call received
	// no addresses at all.
	ErrNoAddresses = errors.New("no addresses provided")
)

// AddressError reports an invalid address input: either an empty address
// list or a raw string the address parser rejected.
type AddressError struct {
	// Raw is the offending input, empty when the whole list was missing.
	Raw string
	Err error
}

func (e *AddressError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("invalid address input: %v", e.Err)
	}
	return fmt.Sprintf("invalid address %q: %v", e.Raw, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}
