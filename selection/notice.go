package selection

import (
	"github.com/shopspring/decimal"

	"luch-agregator/models"
)

// Severity of a user visible notice
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice explains a correction made to the selection
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	ModelID  string   `json:"modelId,omitempty"`
}

// Snapshot is the validated, priced view of a selection handed to views and renderers
type Snapshot struct {
	Items   []models.LineItem `json:"items"`
	Total   decimal.Decimal   `json:"total"`
	Notices []Notice          `json:"notices"`
}

// IsEmpty reports whether there is nothing to put on an offer
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}
