package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart means there is nothing to charge; no redirect is produced.
	ErrEmptyCart = errors.New("cart details empty")
	// ErrInvalidLineItem rejects items with a quantity below one or negative amounts.
	ErrInvalidLineItem = errors.New("invalid line item")
	// ErrCurrencyMismatch rejects purchases priced in a currency other than the store's.
	ErrCurrencyMismatch = errors.New("purchase currency does not match store currency")
	// ErrInvalidNotification is set on outcomes whose payload was rejected.
	ErrInvalidNotification = errors.New("invalid payment notification")
	// ErrUnrecognizedNotification is returned for payloads matching neither shape.
	ErrUnrecognizedNotification = errors.New("unrecognized payment notification")
)

// VerificationTransportError reports a failed token verification call. The
// notification outcome is indeterminate, not invalid.
type VerificationTransportError struct {
	StatusCode int
	Err        error
}

func (e *VerificationTransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token verification failed: %v", e.Err)
	}
	return fmt.Sprintf("token verification returned status %d", e.StatusCode)
}

func (e *VerificationTransportError) Unwrap() error {
	return e.Err
}
