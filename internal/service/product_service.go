package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/iyhunko/eco-consumo/internal/metrics"
	"github.com/iyhunko/eco-consumo/internal/model"
	"github.com/iyhunko/eco-consumo/internal/openfoodfacts"
	"github.com/iyhunko/eco-consumo/internal/repository"
	"github.com/iyhunko/eco-consumo/internal/sqs"
	"golang.org/x/sync/singleflight"
)

const (
	flowLookup = "lookup"
	flowRate   = "rate"
)

// ProductFetcher retrieves raw product data from Open Food Facts.
type ProductFetcher interface {
	FetchByBarcode(ctx context.Context, barcode string) (*openfoodfacts.Product, error)
}

// EventPublisher publishes product events. It is optional.
type EventPublisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

type ProductService struct {
	repo      repository.ProductRepository
	fetcher   ProductFetcher
	publisher EventPublisher
	inflight  singleflight.Group
}

// NewProductService wires the lookup and rating flows. publisher may be nil.
func NewProductService(repo repository.ProductRepository, fetcher ProductFetcher, publisher EventPublisher) *ProductService {
	return &ProductService{
		repo:      repo,
		fetcher:   fetcher,
		publisher: publisher,
	}
}

// NormalizeBarcode removes every whitespace rune from input.
func NormalizeBarcode(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
}

// GetOrFetch returns the cached product for barcodeInput, fetching and caching it
// from Open Food Facts on a miss. created reports whether the record was just stored.
func (ps *ProductService) GetOrFetch(ctx context.Context, barcodeInput string) (product *model.Product, created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in lookup", slog.Any("panic", r))
			product, created, err = nil, false, newError(KindUnexpected, fmt.Errorf("panic: %v", r))
		}
		ps.recordLookup(created, err)
	}()

	barcode := NormalizeBarcode(barcodeInput)
	if barcode == "" {
		return nil, false, newError(KindMissingBarcode, nil)
	}

	product, err = ps.repo.FindByBarcode(ctx, barcode)
	if err == nil {
		return product, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		slog.Error("Failed to query product", slog.String("barcode", barcode), slog.Any("err", err))
		return nil, false, newError(KindStorageQueryFailed, err)
	}

	v, err, shared := ps.inflight.Do(barcode, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = newError(KindUnexpected, fmt.Errorf("panic: %v", r))
			}
		}()
		// Waiters share this work, so one caller going away must not cancel it.
		// The upstream client still applies its own timeout.
		return ps.fetchAndStore(context.WithoutCancel(ctx), barcode)
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		slog.Debug("Shared in-flight product fetch", slog.String("barcode", barcode))
	}

	return v.(*model.Product), true, nil
}

func (ps *ProductService) fetchAndStore(ctx context.Context, barcode string) (*model.Product, error) {
	raw, err := ps.fetcher.FetchByBarcode(ctx, barcode)
	if err != nil {
		return nil, classifyFetchError(err)
	}

	product := openfoodfacts.Normalize(raw)
	product.Barcode = barcode

	var created *model.Product
	err = ps.repo.WithinTransaction(ctx, func(repo repository.ProductRepository) error {
		var err error
		created, err = repo.Create(ctx, product)
		return err
	})
	if err != nil {
		slog.Error("Failed to save product", slog.String("barcode", barcode), slog.Any("err", err))
		return nil, newError(KindStorageWriteFailed, err)
	}

	metrics.ProductsCreated.Inc()
	ps.publish(ctx, sqs.ActionCached, created)

	return created, nil
}

func classifyFetchError(err error) error {
	switch {
	case errors.Is(err, openfoodfacts.ErrProductNotFound):
		return newError(KindProductNotFound, err)
	case errors.Is(err, openfoodfacts.ErrTimeout):
		return newError(KindUpstreamTimeout, err)
	case errors.Is(err, openfoodfacts.ErrUnavailable):
		return newError(KindUpstreamUnavailable, err)
	default:
		return newError(KindUnexpected, err)
	}
}

// Rate stores a custom evaluation for an already cached product.
// The barcode is matched exactly as given.
func (ps *ProductService) Rate(ctx context.Context, barcode string, value float64) (product *model.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in rating", slog.Any("panic", r))
			product, err = nil, newError(KindUnexpected, fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			metrics.FlowErrors.WithLabelValues(flowRate, string(KindOf(err))).Inc()
		}
	}()

	if !model.ValidCustomEvaluation(value) {
		return nil, newError(KindInvalidRating, fmt.Errorf("custom evaluation %v out of range", value))
	}

	err = ps.repo.WithinTransaction(ctx, func(repo repository.ProductRepository) error {
		if _, err := repo.FindByBarcode(ctx, barcode); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindProductNotFound, err)
			}
			return newError(KindStorageQueryFailed, err)
		}

		updated, err := repo.UpdateCustomEvaluation(ctx, barcode, value)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindProductNotFound, err)
			}
			return newError(KindStorageWriteFailed, err)
		}
		product = updated
		return nil
	})
	if err != nil {
		var flowErr *Error
		if !errors.As(err, &flowErr) {
			// begin or commit failed
			err = newError(KindStorageWriteFailed, err)
		}
		if KindOf(err) != KindProductNotFound {
			slog.Error("Failed to update custom evaluation", slog.String("barcode", barcode), slog.Any("err", err))
		}
		return nil, err
	}

	metrics.RatingsSubmitted.Inc()
	ps.publish(ctx, sqs.ActionRated, product)

	return product, nil
}

func (ps *ProductService) publish(ctx context.Context, action string, product *model.Product) {
	if ps.publisher == nil {
		return
	}
	if err := ps.publisher.PublishProductMessage(ctx, sqs.NewProductMessage(action, product)); err != nil {
		// Log error but don't fail the request
		slog.Error("Failed to send SQS message", slog.Any("err", err), slog.String("action", action), slog.String("barcode", product.Barcode))
	}
}

func (ps *ProductService) recordLookup(created bool, err error) {
	switch {
	case err != nil:
		kind := string(KindOf(err))
		metrics.Lookups.WithLabelValues(kind).Inc()
		metrics.FlowErrors.WithLabelValues(flowLookup, kind).Inc()
	case created:
		metrics.Lookups.WithLabelValues("created").Inc()
	default:
		metrics.Lookups.WithLabelValues("hit").Inc()
	}
}
