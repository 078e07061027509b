package repository

import (
	"context"

	"luch-agregator/models"
)

// CatalogRepositoryInterface defines the contract for catalog read operations
type CatalogRepositoryInterface interface {
	GetModel(ctx context.Context, id int64) (*models.ProductModel, error)
	GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error)
	ListModelsOrdered(ctx context.Context) ([]models.CatalogRow, error)
}

// DocumentLogRepositoryInterface defines the contract for the document audit log
type DocumentLogRepositoryInterface interface {
	Allocate(ctx context.Context, userID *int64, docType models.DocumentType) (*models.DocumentLog, error)
	AttachFile(ctx context.Context, id int64, fileRef string) error
	List(ctx context.Context) ([]models.DocumentLog, error)
}

// UserRepositoryInterface defines the contract for staff user lookups
type UserRepositoryInterface interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}
