package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"luch-agregator/app/middleware"
	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/selection"
	"luch-agregator/service"
	"luch-agregator/session"
)

// pricePrefix names the per-model price fields of the apply_prices form: price_<model id>
const pricePrefix = "price_"

// CatalogController serves the catalog view and the selection edits
type CatalogController struct {
	catalog    *service.CatalogService
	selections *service.SelectionService
	sessions   *session.Manager
	log        *logger.Logger
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(
	catalog *service.CatalogService,
	selections *service.SelectionService,
	sessions *session.Manager,
	log *logger.Logger,
) *CatalogController {
	return &CatalogController{
		catalog:    catalog,
		selections: selections,
		sessions:   sessions,
		log:        log.With("component", "CatalogController"),
	}
}

// CatalogResponse is the body of GET /catalog
type CatalogResponse struct {
	Categories []models.CatalogCategory `json:"categories"`
	Selection  *selection.Snapshot      `json:"selection"`
	Flashes    []session.Flash          `json:"flashes"`
}

// Catalog handles GET /catalog
func (c *CatalogController) Catalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := middleware.SessionFromContext(ctx)

	categories, err := c.catalog.BuildCatalogIndex(ctx)
	if err != nil {
		c.log.Error("❌ Catalog could not be loaded", "error", err)
		respondError(w, c.log, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}

	snapshot, err := c.selections.View(ctx, c.sessions.SelectionStore(s.ID))
	if err != nil {
		c.log.Error("❌ Selection could not be loaded", "error", err)
		respondError(w, c.log, http.StatusServiceUnavailable, "selection unavailable")
		return
	}

	flashes, err := c.sessions.DrainFlashes(ctx, s.ID)
	if err != nil {
		c.log.Warn("⚠️  Flashes could not be read", "error", err)
		flashes = []session.Flash{}
	}

	respondJSON(w, c.log, http.StatusOK, CatalogResponse{Categories: categories, Selection: snapshot, Flashes: flashes})
}

// UpdateSelection handles POST /catalog/selection/update
func (c *CatalogController) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := middleware.SessionFromContext(ctx)

	cmd, err := parseCommand(r)
	if err != nil {
		respondError(w, c.log, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := c.selections.Update(ctx, c.sessions.SelectionStore(s.ID), cmd)
	switch {
	case err == nil:
		respondJSON(w, c.log, http.StatusOK, snapshot)
	case errors.Is(err, selection.ErrInvalidCommand):
		respondError(w, c.log, http.StatusBadRequest, err.Error())
	case errors.Is(err, selection.ErrModelNotFound):
		respondError(w, c.log, http.StatusNotFound, fmt.Sprintf("model %s not found", cmd.ModelID))
	default:
		c.log.Error("❌ Selection update failed", "action", cmd.Action, "error", err)
		respondError(w, c.log, http.StatusServiceUnavailable, "selection could not be updated")
	}
}

type commandRequest struct {
	Action   string            `json:"action"`
	ModelID  json.RawMessage   `json:"model_id"`
	Quantity *int              `json:"quantity"`
	Prices   map[string]string `json:"prices"`
}

// parseCommand reads a selection command from a JSON body or a form
func parseCommand(r *http.Request) (selection.Command, error) {
	if isJSON(r) {
		var req commandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return selection.Command{}, fmt.Errorf("%w: invalid JSON body", selection.ErrInvalidCommand)
		}
		cmd := selection.Command{Action: selection.Action(req.Action), Quantity: req.Quantity, Prices: req.Prices}
		if len(req.ModelID) > 0 {
			// model_id may come as a number or a string
			var id string
			if err := json.Unmarshal(req.ModelID, &id); err != nil {
				id = string(req.ModelID)
			}
			cmd.ModelID = strings.TrimSpace(id)
		}
		return cmd, nil
	}

	if err := r.ParseForm(); err != nil {
		return selection.Command{}, fmt.Errorf("%w: invalid form", selection.ErrInvalidCommand)
	}
	cmd := selection.Command{
		Action:  selection.Action(r.PostForm.Get("action")),
		ModelID: strings.TrimSpace(r.PostForm.Get("model_id")),
	}
	if raw := strings.TrimSpace(r.PostForm.Get("quantity")); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return selection.Command{}, fmt.Errorf("%w: quantity %q is not a number", selection.ErrInvalidCommand, raw)
		}
		cmd.Quantity = &q
	}
	if cmd.Action == selection.ActionApplyPrices {
		cmd.Prices = map[string]string{}
		for key, values := range r.PostForm {
			if id, ok := strings.CutPrefix(key, pricePrefix); ok && len(values) > 0 {
				cmd.Prices[id] = values[0]
			}
		}
	}
	return cmd, nil
}
