package service

import (
	"context"
	"fmt"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/repository"
)

// CatalogService builds the grouped catalog view and resolves model ids for the selection logic
type CatalogService struct {
	repository repository.CatalogRepositoryInterface
	log        *logger.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(repo repository.CatalogRepositoryInterface, log *logger.Logger) *CatalogService {
	return &CatalogService{repository: repo, log: log.With("component", "CatalogService")}
}

// GetModel returns one model, or an error wrapping selection.ErrModelNotFound
func (s *CatalogService) GetModel(ctx context.Context, id int64) (*models.ProductModel, error) {
	return s.repository.GetModel(ctx, id)
}

// GetModels resolves many ids with a single lookup
func (s *CatalogService) GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error) {
	return s.repository.GetModels(ctx, ids)
}

// BuildCatalogIndex groups every model as category -> product -> models, keeping the
// category, product and model name order of the listing. Orphan models are skipped.
func (s *CatalogService) BuildCatalogIndex(ctx context.Context) ([]models.CatalogCategory, error) {
	rows, err := s.repository.ListModelsOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	index := []models.CatalogCategory{}
	categoryPos := map[int64]int{}
	productPos := map[int64]int{}
	skipped := 0

	for _, row := range rows {
		if row.Orphan {
			s.log.Warn("⚠️  Skipping orphan model", "model_id", row.Model.ID, "product_id", row.Model.ProductID)
			skipped++
			continue
		}
		m := row.Model

		ci, ok := categoryPos[m.CategoryID]
		if !ok {
			index = append(index, models.CatalogCategory{
				Category: models.Category{ID: m.CategoryID, Name: m.CategoryName, Description: row.CategoryDescription},
				Products: []models.CatalogProduct{},
			})
			ci = len(index) - 1
			categoryPos[m.CategoryID] = ci
		}
		category := &index[ci]

		pi, ok := productPos[m.ProductID]
		if !ok {
			category.Products = append(category.Products, models.CatalogProduct{
				Product: models.Product{ID: m.ProductID, CategoryID: m.CategoryID, Name: m.ProductName},
				Models:  []models.ProductModel{},
			})
			pi = len(category.Products) - 1
			productPos[m.ProductID] = pi
		}
		category.Products[pi].Models = append(category.Products[pi].Models, m)
	}

	s.log.Debug("✓ Catalog index built", "categories", len(index), "models", len(rows)-skipped, "skipped", skipped)
	return index, nil
}
