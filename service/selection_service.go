package service

import (
	"context"
	"errors"
	"fmt"

	"luch-agregator/logger"
	"luch-agregator/metrics"
	"luch-agregator/selection"
)

// SelectionService runs the read and edit flows of a session selection:
// load, mutate, reconcile, persist
type SelectionService struct {
	reconciler *selection.Reconciler
	mutator    *selection.Mutator
	log        *logger.Logger
}

// NewSelectionService creates a new SelectionService
func NewSelectionService(catalog selection.Catalog, log *logger.Logger) *SelectionService {
	return &SelectionService{
		reconciler: selection.NewReconciler(catalog, log),
		mutator:    selection.NewMutator(catalog, log),
		log:        log.With("component", "SelectionService"),
	}
}

// View reconciles the stored selection and persists the healed blob when anything was corrected.
// Stored values with a dirty price are kept as they are; the warning repeats on every view.
func (s *SelectionService) View(ctx context.Context, store selection.Store) (*selection.Snapshot, error) {
	raw, notices, err := s.load(ctx, store)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.Reconcile(ctx, raw, selection.Options{})
	if err != nil {
		return nil, err
	}
	if res.Changed || len(notices) > 0 {
		if err := store.Save(ctx, res.Corrected); err != nil {
			return nil, fmt.Errorf("failed to save healed selection: %w", err)
		}
		s.log.Info("✓ Selection healed", "entries", len(res.Corrected))
	}

	snapshot := res.Snapshot
	snapshot.Notices = append(notices, snapshot.Notices...)
	countNotices(snapshot.Notices)
	return &snapshot, nil
}

// Update applies cmd to the stored selection, reconciles the result and persists it.
// Rejected commands leave the stored selection untouched. For an unknown model the stale
// entry, if any, is purged and saved before the error is returned.
func (s *SelectionService) Update(ctx context.Context, store selection.Store, cmd selection.Command) (*selection.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		s.log.Warn("❌ Rejected selection command", "action", cmd.Action, "error", err)
		return nil, err
	}

	raw, notices, err := s.load(ctx, store)
	if err != nil {
		return nil, err
	}

	out, err := s.mutator.Apply(ctx, raw, cmd)
	if err != nil {
		if errors.Is(err, selection.ErrModelNotFound) && out != nil && out.Changed {
			if saveErr := store.Save(ctx, out.Selection); saveErr != nil {
				return nil, fmt.Errorf("failed to save purged selection: %w", saveErr)
			}
		}
		return nil, err
	}

	res, err := s.reconciler.Reconcile(ctx, out.Selection, selection.Options{Normalize: true})
	if err != nil {
		return nil, err
	}
	if out.Changed || res.Changed || len(notices) > 0 {
		if err := store.Save(ctx, res.Corrected); err != nil {
			return nil, fmt.Errorf("failed to save selection: %w", err)
		}
	}
	s.log.Info("✓ Selection updated", "action", cmd.Action, "model_id", cmd.ModelID, "items", len(res.Items))

	snapshot := res.Snapshot
	all := append(notices, out.Notices...)
	snapshot.Notices = append(all, snapshot.Notices...)
	countNotices(snapshot.Notices)
	return &snapshot, nil
}

// load reads the stored selection. A blob that is not a JSON object is discarded
// with an error notice instead of failing the request.
func (s *SelectionService) load(ctx context.Context, store selection.Store) (selection.Raw, []selection.Notice, error) {
	notices := []selection.Notice{}
	raw, err := store.Load(ctx)
	if errors.Is(err, selection.ErrCorruptSelection) {
		s.log.Warn("⚠️  Discarding corrupt selection", "error", err)
		notices = append(notices, selection.Notice{
			Severity: selection.SeverityError,
			Message:  "Your saved selection could not be read and was reset.",
		})
		return selection.Raw{}, notices, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load selection: %w", err)
	}
	return raw, notices, nil
}

func countNotices(notices []selection.Notice) {
	for _, n := range notices {
		metrics.SelectionNotices.WithLabelValues(string(n.Severity)).Inc()
	}
}
