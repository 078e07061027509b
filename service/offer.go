package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"luch-agregator/config"
	"luch-agregator/models"
)

// Offer is everything a renderer needs to produce one document
type Offer struct {
	// Number is nil when the document has no allocated number
	Number *int64
	Date   time.Time
	Items  []models.LineItem
	Total  decimal.Decimal
	Texts  config.OfferTexts
}

// PDFRendererInterface defines the contract for the PDF offer renderer
type PDFRendererInterface interface {
	Render(ctx context.Context, offer *Offer) ([]byte, error)
}

// DOCXRendererInterface defines the contract for the template based DOCX renderer
type DOCXRendererInterface interface {
	HasVariant(variant string) bool
	Render(ctx context.Context, offer *Offer, variant string) ([]byte, error)
}

// DocumentArchiveInterface stores generated documents outside the service
type DocumentArchiveInterface interface {
	// Upload returns a reference to the stored file
	Upload(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)
