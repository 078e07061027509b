package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/selection"
)

const modelColumns = `
			m.id,
			m.name,
			m.price,
			m.details,
			COALESCE(m.image, '') AS image,
			m.product_id,
			p.name AS product_name,
			c.id AS category_id,
			c.name AS category_name`

// CatalogRepository handles read access to categories, products and models
type CatalogRepository struct {
	db  *sql.DB
	log *logger.Logger
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *sql.DB, log *logger.Logger) *CatalogRepository {
	return &CatalogRepository{db: db, log: log.With("component", "CatalogRepository")}
}

// Ensure CatalogRepository implements CatalogRepositoryInterface
var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

// GetModel retrieves one model with its product and category names
func (r *CatalogRepository) GetModel(ctx context.Context, id int64) (*models.ProductModel, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM product_models m
		INNER JOIN products p ON m.product_id = p.id
		INNER JOIN categories c ON p.category_id = c.id
		WHERE m.id = $1
	`

	m, err := scanModel(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", selection.ErrModelNotFound, id)
	}
	if err != nil {
		r.log.Error("❌ Error querying model", "model_id", id, "error", err)
		return nil, fmt.Errorf("failed to query model %d: %w", id, err)
	}
	return m, nil
}

// GetModels retrieves every model whose id is in ids with a single query.
// Missing ids are absent from the result.
func (r *CatalogRepository) GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error) {
	result := make(map[int64]*models.ProductModel, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT ` + modelColumns + `
		FROM product_models m
		INNER JOIN products p ON m.product_id = p.id
		INNER JOIN categories c ON p.category_id = c.id
		WHERE m.id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		r.log.Error("❌ Error querying models batch", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		result[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate models: %w", err)
	}

	r.log.Debug("✓ Models batch loaded", "requested", len(ids), "found", len(result))
	return result, nil
}

// ListModelsOrdered returns every model ordered by category, product and model name.
// Models whose product or category cannot be resolved are returned with Orphan set.
func (r *CatalogRepository) ListModelsOrdered(ctx context.Context) ([]models.CatalogRow, error) {
	query := `
		SELECT
			m.id,
			m.name,
			m.price,
			m.details,
			COALESCE(m.image, '') AS image,
			m.product_id,
			p.name AS product_name,
			c.id AS category_id,
			c.name AS category_name,
			COALESCE(c.description, '') AS category_description
		FROM product_models m
		LEFT JOIN products p ON m.product_id = p.id
		LEFT JOIN categories c ON p.category_id = c.id
		ORDER BY c.name ASC, p.name ASC, m.name ASC, m.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("❌ Error querying catalog", "error", err)
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var list []models.CatalogRow
	for rows.Next() {
		var (
			row          models.CatalogRow
			price        string
			productName  sql.NullString
			categoryID   sql.NullInt64
			categoryName sql.NullString
		)
		err := rows.Scan(
			&row.Model.ID,
			&row.Model.Name,
			&price,
			&row.Model.Details,
			&row.Model.Image,
			&row.Model.ProductID,
			&productName,
			&categoryID,
			&categoryName,
			&row.CategoryDescription,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		if row.Model.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price %q for model %d: %w", price, row.Model.ID, err)
		}
		row.Model.ProductName = productName.String
		row.Model.CategoryID = categoryID.Int64
		row.Model.CategoryName = categoryName.String
		row.Orphan = !productName.Valid || !categoryID.Valid
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}

	r.log.Info("✓ Catalog loaded", "models", len(list))
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(s rowScanner) (*models.ProductModel, error) {
	var (
		m     models.ProductModel
		price string
	)
	if err := s.Scan(
		&m.ID,
		&m.Name,
		&price,
		&m.Details,
		&m.Image,
		&m.ProductID,
		&m.ProductName,
		&m.CategoryID,
		&m.CategoryName,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for model %d: %w", price, m.ID, err)
	}
	m.Price = d
	return &m, nil
}
