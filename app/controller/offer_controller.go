package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"luch-agregator/app/middleware"
	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/service"
	"luch-agregator/session"
)

// CatalogPath is where generation requests return to when no document is delivered
const CatalogPath = "/catalog"

// OfferController delivers generated offers
type OfferController struct {
	offers   *service.OfferService
	sessions *session.Manager
	log      *logger.Logger
}

// NewOfferController creates a new OfferController
func NewOfferController(offers *service.OfferService, sessions *session.Manager, log *logger.Logger) *OfferController {
	return &OfferController{offers: offers, sessions: sessions, log: log.With("component", "OfferController")}
}

// GeneratePDF handles /catalog/selection/generate-pdf
func (c *OfferController) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	c.generate(w, r, service.OfferRequest{Format: models.DocumentTypePDF})
}

// GenerateDOCX returns the handler of one fixed template variant
func (c *OfferController) GenerateDOCX(variant string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.generate(w, r, service.OfferRequest{Format: models.DocumentTypeDOCX, Variant: variant})
	}
}

// GenerateDOCXVariant handles /catalog/selection/generate-docx/{variant}
func (c *OfferController) GenerateDOCXVariant(w http.ResponseWriter, r *http.Request) {
	c.generate(w, r, service.OfferRequest{Format: models.DocumentTypeDOCX, Variant: chi.URLParam(r, "variant")})
}

func (c *OfferController) generate(w http.ResponseWriter, r *http.Request, req service.OfferRequest) {
	ctx := r.Context()
	s, _ := middleware.SessionFromContext(ctx)
	userID := s.UserID
	req.UserID = &userID

	doc, err := c.offers.Generate(ctx, c.sessions.SelectionStore(s.ID), req)
	if doc != nil {
		for _, n := range doc.Notices {
			c.flash(r, s.ID, session.Level(n.Severity), n.Message)
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnknownVariant):
		respondError(w, c.log, http.StatusNotFound, fmt.Sprintf("unknown template variant %q", req.Variant))
		return
	case errors.Is(err, service.ErrEmptySelection):
		c.flash(r, s.ID, session.LevelInfo, "Your selection is empty. Add models before generating an offer.")
		http.Redirect(w, r, CatalogPath, http.StatusSeeOther)
		return
	case errors.Is(err, service.ErrResourceUnavailable):
		c.flash(r, s.ID, session.LevelError, "The offer could not be generated because a required resource is unavailable. Your selection was kept, please try again.")
		http.Redirect(w, r, CatalogPath, http.StatusSeeOther)
		return
	default:
		c.log.Error("❌ Offer generation failed", "format", req.Format, "variant", req.Variant, "error", err)
		c.flash(r, s.ID, session.LevelError, "The offer could not be generated. Your selection was kept, please try again.")
		http.Redirect(w, r, CatalogPath, http.StatusSeeOther)
		return
	}

	for _, warning := range doc.Warnings {
		c.flash(r, s.ID, session.LevelWarning, warning)
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		c.log.Warn("⚠️  Document delivery interrupted", "number", doc.Number, "error", err)
	}
}

func (c *OfferController) flash(r *http.Request, sessionID string, level session.Level, message string) {
	if err := c.sessions.AddFlash(r.Context(), sessionID, level, message); err != nil {
		c.log.Warn("⚠️  Flash could not be queued", "error", err)
	}
}
