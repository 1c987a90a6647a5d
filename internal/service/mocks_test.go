package service_test

import (
	"context"

	"github.com/iyhunko/eco-consumo/internal/model"
	"github.com/iyhunko/eco-consumo/internal/openfoodfacts"
	"github.com/iyhunko/eco-consumo/internal/repository"
	"github.com/iyhunko/eco-consumo/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of repository.ProductRepository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockRepository) UpdateCustomEvaluation(ctx context.Context, barcode string, value float64) (*model.Product, error) {
	args := m.Called(ctx, barcode, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// WithinTransaction runs fn against the mock itself unless an error was configured.
func (m *MockRepository) WithinTransaction(ctx context.Context, fn func(repo repository.ProductRepository) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

// MockFetcher is a mock implementation of service.ProductFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchByBarcode(ctx context.Context, barcode string) (*openfoodfacts.Product, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openfoodfacts.Product), args.Error(1)
}

// MockPublisher is a mock implementation of service.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}
