package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iyhunko/eco-consumo/internal/model"
)

var (
	// ErrNotFound is returned when no product matches the requested barcode.
	ErrNotFound = errors.New("product not found")
)

// ProductRepository is the barcode-keyed product store.
type ProductRepository interface {
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	UpdateCustomEvaluation(ctx context.Context, barcode string, value float64) (*model.Product, error)
	// WithinTransaction runs fn against a repository bound to a single transaction.
	// The transaction is rolled back when fn returns an error and committed otherwise.
	WithinTransaction(ctx context.Context, fn func(repo ProductRepository) error) error
}

// StorageError wraps a failure reported by the underlying database.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a failure of the named store operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (s *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", s.Op, s.Err)
}

func (s *StorageError) Unwrap() error {
	return s.Err
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
