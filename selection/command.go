package selection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommand marks an edit command rejected before touching the selection
var ErrInvalidCommand = errors.New("invalid selection command")

// Action names an edit of the selection
type Action string

const (
	ActionAdd         Action = "add"
	ActionRemove      Action = "remove"
	ActionRemoveAll   Action = "remove_all"
	ActionSet         Action = "set"
	ActionClear       Action = "clear"
	ActionApplyPrices Action = "apply_prices"
)

// Command is one user issued edit
type Command struct {
	Action   Action
	ModelID  string
	Quantity *int
	// Prices maps model id to a price string; empty string clears the override
	Prices map[string]string
}

// requiresCatalogModel reports whether the target model must exist in the catalog
func (c Command) requiresCatalogModel() bool {
	return c.Action == ActionAdd || c.Action == ActionRemove || c.Action == ActionSet
}

// Validate rejects malformed commands. It never looks at the selection or the catalog.
func (c Command) Validate() error {
	switch c.Action {
	case ActionClear:
		return nil
	case ActionApplyPrices:
		if c.Prices == nil {
			return fmt.Errorf("%w: action %q requires prices", ErrInvalidCommand, c.Action)
		}
		return nil
	case ActionAdd, ActionRemove, ActionRemoveAll, ActionSet:
	case "":
		return fmt.Errorf("%w: missing action", ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, c.Action)
	}

	if strings.TrimSpace(c.ModelID) == "" {
		return fmt.Errorf("%w: action %q requires model_id", ErrInvalidCommand, c.Action)
	}
	if c.requiresCatalogModel() {
		if _, ok := parseModelID(strings.TrimSpace(c.ModelID)); !ok {
			return fmt.Errorf("%w: invalid model_id %q", ErrInvalidCommand, c.ModelID)
		}
	}
	if c.Action == ActionSet {
		if c.Quantity == nil {
			return fmt.Errorf("%w: action %q requires quantity", ErrInvalidCommand, c.Action)
		}
		if *c.Quantity < 0 {
			return fmt.Errorf("%w: quantity must be a non-negative integer, got %d", ErrInvalidCommand, *c.Quantity)
		}
	}
	return nil
}
