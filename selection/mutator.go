package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/pricing"
)

// Outcome is the result of applying one command
type Outcome struct {
	Selection Raw
	Notices   []Notice
	// Changed is set when Selection differs from the input and must be persisted.
	// It can be set together with an error when a stale entry was purged.
	Changed bool
}

// Mutator applies edit commands to a raw selection. The input blob is never modified.
type Mutator struct {
	catalog Catalog
	log     *logger.Logger
}

// NewMutator creates a Mutator
func NewMutator(catalog Catalog, log *logger.Logger) *Mutator {
	return &Mutator{catalog: catalog, log: log.With("component", "SelectionMutator")}
}

// Apply runs cmd against raw. Rejected commands return ErrInvalidCommand with the
// selection unchanged. A model id missing from the catalog returns ErrModelNotFound and,
// if the id was still stored, an Outcome with the stale entry purged.
func (m *Mutator) Apply(ctx context.Context, raw Raw, cmd Command) (*Outcome, error) {
	unchanged := &Outcome{Selection: raw, Notices: []Notice{}}
	if err := cmd.Validate(); err != nil {
		return unchanged, err
	}

	modelID := strings.TrimSpace(cmd.ModelID)
	if id, ok := parseModelID(modelID); ok {
		modelID = canonicalKey(id)
	}
	base, merged, aliasNotices := mergeAliases(raw)

	if cmd.requiresCatalogModel() {
		id, _ := parseModelID(modelID)
		if _, err := m.catalog.GetModel(ctx, id); err != nil {
			if !errors.Is(err, ErrModelNotFound) {
				return unchanged, fmt.Errorf("failed to resolve model %s: %w", modelID, err)
			}
			m.log.Warn("❌ Selection command for unknown model", "action", cmd.Action, "model_id", modelID)
			if _, stale := base[modelID]; stale {
				purged := base.Clone()
				delete(purged, modelID)
				m.log.Info("✓ Purged stale selection entry", "model_id", modelID)
				return &Outcome{Selection: purged, Notices: []Notice{}, Changed: true},
					fmt.Errorf("%w: model ID %s", ErrModelNotFound, modelID)
			}
			return unchanged, fmt.Errorf("%w: model ID %s", ErrModelNotFound, modelID)
		}
	}

	out := &Outcome{Selection: base.Clone(), Notices: append([]Notice{}, aliasNotices...), Changed: merged}
	sel := out.Selection

	switch cmd.Action {
	case ActionClear:
		out.Selection = Raw{}
		out.Changed = len(raw) > 0

	case ActionAdd:
		entry, ok := sel[modelID]
		if !ok || entry.Kind == KindInvalid {
			entry = Structured(0, nil)
		}
		entry.Quantity = entry.EffectiveQuantity() + 1
		entry.Malformed = false
		sel[modelID] = entry
		out.Changed = true

	case ActionRemove:
		entry, ok := sel[modelID]
		if !ok {
			m.log.Debug("Remove for model not in selection", "model_id", modelID)
			break
		}
		if q := entry.EffectiveQuantity() - 1; q > 0 {
			entry.Quantity = q
			sel[modelID] = entry
		} else {
			delete(sel, modelID)
		}
		out.Changed = true

	case ActionRemoveAll:
		if _, ok := sel[modelID]; ok {
			delete(sel, modelID)
			out.Changed = true
		}

	case ActionSet:
		quantity := *cmd.Quantity
		if quantity == 0 {
			if _, ok := sel[modelID]; ok {
				delete(sel, modelID)
				out.Changed = true
			}
			break
		}
		entry, ok := sel[modelID]
		if !ok || entry.Kind == KindInvalid {
			entry = Structured(0, nil)
		}
		entry.Quantity = quantity
		entry.Malformed = false
		sel[modelID] = entry
		out.Changed = true

	case ActionApplyPrices:
		if err := m.applyPrices(ctx, out, cmd.Prices); err != nil {
			return unchanged, err
		}
	}

	m.log.Debug("✓ Selection command applied", "action", cmd.Action, "model_id", modelID, "changed", out.Changed)
	return out, nil
}

// applyPrices sets or clears overrides for ids that are both in the payload and in the
// selection. Invalid values leave the stored override untouched and produce a warning.
func (m *Mutator) applyPrices(ctx context.Context, out *Outcome, prices map[string]string) error {
	sel := out.Selection

	prices = canonicalPrices(prices)
	targets := make([]string, 0, len(prices))
	for key := range prices {
		if entry, ok := sel[key]; ok && entry.Kind != KindInvalid {
			targets = append(targets, key)
		}
	}
	sort.Strings(targets)
	if len(targets) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(targets))
	for _, key := range targets {
		if id, ok := parseModelID(key); ok {
			ids = append(ids, id)
		}
	}
	names, err := m.catalog.GetModels(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load models for price update: %w", err)
	}

	for _, key := range targets {
		value := strings.TrimSpace(prices[key])
		entry := sel[key]

		if value == "" {
			if entry.Price != nil {
				entry.Price = nil
				sel[key] = entry
				out.Changed = true
			}
			continue
		}

		normalized, err := pricing.NormalizePrice(value)
		if err != nil {
			m.log.Warn("⚠️  Rejected price override", "model_id", key, "price", value, "error", err)
			out.Notices = append(out.Notices, Notice{
				Severity: SeverityWarning,
				ModelID:  key,
				Message:  fmt.Sprintf("Price %q for %s was rejected: it must be a non-negative number.", value, displayName(names, key)),
			})
			continue
		}
		if entry.Price != nil && *entry.Price == normalized && entry.Kind == KindStructured {
			continue
		}
		entry.Price = &normalized
		entry.Kind = KindStructured
		sel[key] = entry
		out.Changed = true
	}
	return nil
}

// canonicalPrices keys the payload by canonical model id. A value sent under the
// canonical key wins over one sent under an alias such as "07".
func canonicalPrices(prices map[string]string) map[string]string {
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(prices))
	exact := make(map[string]bool, len(prices))
	for _, k := range keys {
		key := strings.TrimSpace(k)
		if id, ok := parseModelID(key); ok {
			key = canonicalKey(id)
		}
		isExact := key == k
		if _, seen := out[key]; seen && (exact[key] || !isExact) {
			continue
		}
		out[key] = prices[k]
		exact[key] = isExact
	}
	return out
}

func displayName(found map[int64]*models.ProductModel, key string) string {
	if id, ok := parseModelID(key); ok {
		if model, ok := found[id]; ok && model != nil {
			return model.DisplayName()
		}
	}
	return "model ID " + key
}
