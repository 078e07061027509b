package selection

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/pricing"
)

// Options tune one reconciliation pass
type Options struct {
	// Normalize is set on mutation paths: invalid stored prices are dropped and an empty
	// price converges to an absent key. Read paths leave stored prices untouched.
	Normalize bool
}

// Result is the outcome of a reconciliation pass
type Result struct {
	Snapshot
	// Corrected is the healed blob the caller should persist when Changed is set
	Corrected Raw
	Changed   bool
}

// Reconciler validates a raw selection against the live catalog, migrates legacy
// entries, prices every line and heals the blob
type Reconciler struct {
	catalog Catalog
	log     *logger.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(catalog Catalog, log *logger.Logger) *Reconciler {
	return &Reconciler{catalog: catalog, log: log.With("component", "SelectionReconciler")}
}

// Reconcile produces the priced snapshot of raw. The only error is a failed catalog
// lookup; every problem with the selection itself is healed and reported as a notice.
func (r *Reconciler) Reconcile(ctx context.Context, raw Raw, opts Options) (*Result, error) {
	res := &Result{
		Snapshot: Snapshot{
			Items:   []models.LineItem{},
			Total:   decimal.Zero,
			Notices: []Notice{},
		},
		Corrected: Raw{},
	}
	if len(raw) == 0 {
		return res, nil
	}

	raw, merged, aliasNotices := mergeAliases(raw)
	if merged {
		r.log.Warn("⚠️  Merged non-canonical model id keys", "duplicates", len(aliasNotices))
		res.Changed = true
		res.Notices = append(res.Notices, aliasNotices...)
	}

	keys := raw.Keys()

	// One batch lookup for every id that looks like a model id
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, ok := parseModelID(key); ok {
			ids = append(ids, id)
		}
	}
	catalogModels := map[int64]*models.ProductModel{}
	if len(ids) > 0 {
		found, err := r.catalog.GetModels(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load selected models: %w", err)
		}
		catalogModels = found
	}

	migrated := 0
	for _, key := range keys {
		entry := raw[key]

		if entry.Kind == KindInvalid {
			r.log.Warn("⚠️  Dropping malformed selection entry", "model_id", key)
			res.drop(key, SeverityWarning, fmt.Sprintf("Removed malformed selection entry for model ID %s.", key))
			continue
		}

		id, ok := parseModelID(key)
		if !ok {
			r.log.Warn("⚠️  Dropping selection entry with invalid model id", "model_id", key)
			res.drop(key, SeverityWarning, fmt.Sprintf("Removed invalid model ID %s from selection.", key))
			continue
		}
		model, found := catalogModels[id]
		if !found || model == nil {
			r.log.Warn("⚠️  Dropping selection entry for unknown model", "model_id", key)
			res.drop(key, SeverityWarning, fmt.Sprintf("Removed invalid model ID %s from selection.", key))
			continue
		}

		if entry.Kind == KindLegacy {
			if entry.EffectiveQuantity() <= 0 {
				r.log.Warn("⚠️  Dropping legacy entry with non-positive quantity", "model_id", key)
				res.drop(key, SeverityWarning,
					fmt.Sprintf("Removed %s from selection: stored quantity was not positive.", model.DisplayName()))
				continue
			}
			entry = MigrateLegacy(entry, model.Price)
			res.Changed = true
			migrated++
		}

		quantity := entry.EffectiveQuantity()
		if quantity <= 0 {
			// never positive, so no notice
			if entry.Malformed || entry.Quantity < 0 {
				r.log.Warn("⚠️  Dropping entry with invalid quantity", "model_id", key, "quantity", entry.Quantity)
			} else {
				r.log.Debug("Dropping entry with zero quantity", "model_id", key)
			}
			res.Changed = true
			continue
		}

		unitPrice, overridden, err := pricing.EffectiveUnitPrice(entry.Price, model.Price)
		if err != nil {
			r.log.Warn("⚠️  Invalid price override, using catalog price", "model_id", key, "price", *entry.Price, "error", err)
			res.Notices = append(res.Notices, Notice{
				Severity: SeverityWarning,
				ModelID:  key,
				Message: fmt.Sprintf("Invalid price %q for %s; catalog price %s is used.",
					*entry.Price, model.DisplayName(), pricing.FormatAmount(model.Price)),
			})
			if opts.Normalize {
				entry.Price = nil
				res.Changed = true
			}
		} else if opts.Normalize && entry.Price != nil && !overridden {
			// empty string converges to an absent key after a mutation
			entry.Price = nil
			res.Changed = true
		}

		res.Corrected[key] = Structured(quantity, entry.Price)
		res.Items = append(res.Items, models.LineItem{
			Model:      *model,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			LineTotal:  pricing.LineTotal(unitPrice, quantity),
			Overridden: overridden && !unitPrice.Equal(model.Price),
		})
	}

	if migrated > 0 {
		r.log.Info("✓ Selection migrated from legacy format", "entries", migrated)
		res.Notices = append(res.Notices, Notice{
			Severity: SeverityInfo,
			Message:  "Your selection was upgraded to the current format.",
		})
	}

	SortLineItems(res.Items)
	res.Total = pricing.Total(res.Items)
	return res, nil
}

func (res *Result) drop(key string, severity Severity, message string) {
	res.Changed = true
	res.Notices = append(res.Notices, Notice{Severity: severity, Message: message, ModelID: key})
}

// SortLineItems orders items by category, product and model name, then id
func SortLineItems(items []models.LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Model, items[j].Model
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// canonicalKey is the only key form under which model id is stored
func canonicalKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// mergeAliases rewrites keys such as "07" or "+7" to their canonical form so that a model
// has at most one entry. An alias whose canonical key is already taken is dropped with a
// warning; among several aliases the first in key order is kept.
func mergeAliases(raw Raw) (Raw, bool, []Notice) {
	var aliases []string
	for _, key := range raw.Keys() {
		if id, ok := parseModelID(key); ok && canonicalKey(id) != key {
			aliases = append(aliases, key)
		}
	}
	if len(aliases) == 0 {
		return raw, false, nil
	}

	out := raw.Clone()
	var notices []Notice
	for _, key := range aliases {
		id, _ := parseModelID(key)
		canonical := canonicalKey(id)
		entry := out[key]
		delete(out, key)
		if _, taken := out[canonical]; taken {
			notices = append(notices, Notice{
				Severity: SeverityWarning,
				ModelID:  key,
				Message:  fmt.Sprintf("Removed duplicate selection entry %s for model ID %s.", key, canonical),
			})
			continue
		}
		out[canonical] = entry
	}
	return out, true, notices
}

func parseModelID(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
