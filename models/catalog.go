package models

import "github.com/shopspring/decimal"

// Category is the top level of the catalog
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Product belongs to exactly one category; its name is unique within the category
type Product struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
}

// ProductModel is the orderable unit of the catalog
type ProductModel struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Details      string          `json:"details,omitempty"`
	Image        string          `json:"image,omitempty"` // path relative to MEDIA_ROOT
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
}

// DisplayName returns "product - model" as printed on offers
func (m *ProductModel) DisplayName() string {
	return m.ProductName + " - " + m.Name
}

// CatalogProduct groups the models of one product for display
type CatalogProduct struct {
	Product Product        `json:"product"`
	Models  []ProductModel `json:"models"`
}

// CatalogCategory groups the products of one category for display
type CatalogCategory struct {
	Category Category         `json:"category"`
	Products []CatalogProduct `json:"products"`
}

// CatalogRow is one model as listed for catalog grouping.
// Orphan is set when its product or category could not be resolved.
type CatalogRow struct {
	Model               ProductModel
	CategoryDescription string
	Orphan              bool
}
