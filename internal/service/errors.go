package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a product flow failed.
type ErrorKind string

const (
	KindMissingBarcode      ErrorKind = "missing_barcode"
	KindProductNotFound     ErrorKind = "product_not_found"
	KindUpstreamTimeout     ErrorKind = "upstream_timeout"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindInvalidRating       ErrorKind = "invalid_rating"
	KindStorageQueryFailed  ErrorKind = "storage_query_failed"
	KindStorageWriteFailed  ErrorKind = "storage_write_failed"
	KindUnexpected          ErrorKind = "unexpected"
)

// Error is returned by ProductService for every failed flow.
type Error struct {
	Kind ErrorKind
	Err  error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Errors not produced by this package are unexpected.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
