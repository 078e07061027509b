package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luch-agregator/config"
	"luch-agregator/logger"
	"luch-agregator/metrics"
	"luch-agregator/models"
	"luch-agregator/repository"
	"luch-agregator/selection"
	"luch-agregator/utils"
)

// OfferRequest describes one generation request
type OfferRequest struct {
	Format models.DocumentType
	// Variant names the DOCX template; ignored for PDF
	Variant string
	// UserID is recorded on the document log row
	UserID *int64
}

// GeneratedOffer is a delivered document
type GeneratedOffer struct {
	Number      int64
	LogID       int64
	Filename    string
	ContentType string
	Data        []byte
	// Notices holds the selection corrections made while reading it
	Notices []selection.Notice
	// Warnings are non-fatal problems that happened after the number was allocated
	Warnings []string
}

// OfferService coordinates generation: read the selection, allocate a number, render, archive
type OfferService struct {
	selections *SelectionService
	documents  repository.DocumentLogRepositoryInterface
	pdf        PDFRendererInterface
	docx       DOCXRendererInterface
	archive    DocumentArchiveInterface
	texts      config.OfferTexts
	location   *time.Location
	now        func() time.Time
	log        *logger.Logger
}

// NewOfferService creates a new OfferService. archive may be nil.
func NewOfferService(
	selections *SelectionService,
	documents repository.DocumentLogRepositoryInterface,
	pdf PDFRendererInterface,
	docx DOCXRendererInterface,
	archive DocumentArchiveInterface,
	texts config.OfferTexts,
	location *time.Location,
	log *logger.Logger,
) *OfferService {
	if location == nil {
		location = time.UTC
	}
	return &OfferService{
		selections: selections,
		documents:  documents,
		pdf:        pdf,
		docx:       docx,
		archive:    archive,
		texts:      texts,
		location:   location,
		now:        time.Now,
		log:        log.With("component", "OfferService"),
	}
}

// Generate produces one numbered offer from the stored selection.
// An empty selection returns ErrEmptySelection before any number is allocated.
func (s *OfferService) Generate(ctx context.Context, store selection.Store, req OfferRequest) (*GeneratedOffer, error) {
	variant, err := s.checkFormat(req)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.selections.View(ctx, store)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("selection").Inc()
		s.log.Error("❌ Could not read selection for generation", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	if snapshot.IsEmpty() {
		s.log.Info("Nothing to generate, selection is empty", "format", req.Format)
		return &GeneratedOffer{Notices: snapshot.Notices}, ErrEmptySelection
	}

	entry, err := s.documents.Allocate(ctx, req.UserID, req.Format)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("allocation").Inc()
		s.log.Error("❌ Document number allocation failed", "error", err)
		return nil, fmt.Errorf("failed to allocate document number: %w", err)
	}
	number := entry.DocumentNumber

	offer := &Offer{
		Number: &number,
		Date:   s.now().In(s.location),
		Items:  snapshot.Items,
		Total:  snapshot.Total,
		Texts:  s.texts,
	}

	result := &GeneratedOffer{
		Number:   number,
		LogID:    entry.ID,
		Notices:  snapshot.Notices,
		Warnings: []string{},
	}
	switch req.Format {
	case models.DocumentTypePDF:
		result.Data, err = s.pdf.Render(ctx, offer)
		result.Filename = utils.OfferFilename("pdf", "", &number)
		result.ContentType = MimePDF
	default:
		result.Data, err = s.docx.Render(ctx, offer, variant)
		result.Filename = utils.OfferFilename("docx", variant, &number)
		result.ContentType = MimeDOCX
	}
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("render").Inc()
		s.log.Error("❌ Rendering failed", "number", number, "format", req.Format, "variant", variant, "error", err)
		return nil, err
	}

	if warning := s.archiveDocument(ctx, entry.ID, result); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	metrics.DocumentsGenerated.WithLabelValues(string(req.Format), variant).Inc()
	s.log.Info("✓ Offer generated", "number", number, "format", req.Format, "variant", variant,
		"items", len(offer.Items), "bytes", len(result.Data))
	return result, nil
}

func (s *OfferService) checkFormat(req OfferRequest) (string, error) {
	switch req.Format {
	case models.DocumentTypePDF:
		return "", nil
	case models.DocumentTypeDOCX:
		if !s.docx.HasVariant(req.Variant) {
			return "", fmt.Errorf("%w: %q", ErrUnknownVariant, req.Variant)
		}
		return req.Variant, nil
	default:
		return "", fmt.Errorf("unsupported document type %q", req.Format)
	}
}

// archiveDocument uploads the rendered bytes and records the file reference on the log row.
// Failures here never withhold the document; they come back as a warning text.
func (s *OfferService) archiveDocument(ctx context.Context, logID int64, doc *GeneratedOffer) string {
	if s.archive == nil {
		return ""
	}
	ref, err := s.archive.Upload(ctx, doc.Filename, doc.ContentType, doc.Data)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("archive").Inc()
		s.log.Warn("⚠️  Document archive failed", "number", doc.Number, "error", err)
		return fmt.Sprintf("Document %d was generated but could not be archived.", doc.Number)
	}
	if err := s.documents.AttachFile(ctx, logID, ref); err != nil {
		metrics.GenerationFailures.WithLabelValues("audit").Inc()
		s.log.Warn("⚠️  Document log update failed", "number", doc.Number, "file_ref", ref, "error", err)
		if errors.Is(err, repository.ErrDocumentLogNotFound) {
			return fmt.Sprintf("Document %d was archived but its log entry is missing.", doc.Number)
		}
		return fmt.Sprintf("Document %d was archived but the document log could not be updated.", doc.Number)
	}
	return ""
}
