package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/eco-consumo/internal/model"
	"github.com/iyhunko/eco-consumo/internal/repository"
)

const productColumns = `id, barcode, name, eco_score, eco_score_description, custom_evaluation, created_at, updated_at`

// ProductRepository implements repository.ProductRepository on top of database/sql.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// WithinTransaction executes a function within a database transaction
func (r *ProductRepository) WithinTransaction(ctx context.Context, fn func(repo repository.ProductRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.NewStorageError("begin", err)
	}

	txRepo := &ProductRepository{
		db:  r.db,
		txn: tx,
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return repository.NewStorageError("rollback", fmt.Errorf("%w (original error: %v)", rbErr, err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return repository.NewStorageError("commit", err)
	}

	return nil
}

// FindByBarcode retrieves a single product by its barcode.
func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, repository.NewStorageError("select", fmt.Errorf("failed to prepare select statement: %w", err))
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.NewStorageError("select", fmt.Errorf("failed to query product: %w", err))
	}

	return product, nil
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	// Only initialize metadata if not already set
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, repository.NewStorageError("insert", fmt.Errorf("failed to prepare insert statement: %w", err))
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		product.ID, product.Barcode, product.Name, product.EcoScore, product.EcoScoreDescription,
		nullFloat(product.CustomEvaluation), product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if uniqueErr := uniqueViolation(err); uniqueErr != nil {
			return nil, repository.NewStorageError("insert", uniqueErr)
		}
		return nil, repository.NewStorageError("insert", fmt.Errorf("failed to insert product: %w", err))
	}

	return product, nil
}

// UpdateCustomEvaluation sets the personal rating of the product and returns the updated row.
func (r *ProductRepository) UpdateCustomEvaluation(ctx context.Context, barcode string, value float64) (*model.Product, error) {
	query := `UPDATE products SET custom_evaluation = $1, updated_at = $2
	          WHERE barcode = $3
	          RETURNING ` + productColumns

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, repository.NewStorageError("update", fmt.Errorf("failed to prepare update statement: %w", err))
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, value, time.Now(), barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.NewStorageError("update", fmt.Errorf("failed to update custom evaluation: %w", err))
	}

	return product, nil
}

func scanProduct(row *sql.Row) (*model.Product, error) {
	var result model.Product
	var customEvaluation sql.NullFloat64
	err := row.Scan(
		&result.ID, &result.Barcode, &result.Name, &result.EcoScore, &result.EcoScoreDescription,
		&customEvaluation, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if customEvaluation.Valid {
		result.CustomEvaluation = &customEvaluation.Float64
	}
	return &result, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
