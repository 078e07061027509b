package selection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCorruptSelection is returned when a persisted blob is not a JSON object at all
var ErrCorruptSelection = errors.New("corrupt selection blob")

// Kind tags the shape an entry was stored in
type Kind int

const (
	// KindStructured is the current {"quantity": n, "price": "..."} form
	KindStructured Kind = iota
	// KindLegacy is the old bare-quantity form (integer or numeric string)
	KindLegacy
	// KindInvalid is anything else (arrays, booleans, null)
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindLegacy:
		return "legacy"
	default:
		return "invalid"
	}
}

// Entry is one decoded selection value
type Entry struct {
	Kind Kind
	// Quantity is the stored quantity, 0 when Malformed
	Quantity int
	// Malformed marks a missing, non-numeric or negative stored quantity
	Malformed bool
	// Price is the stored override; nil means the key is absent
	Price *string

	raw json.RawMessage
}

// Structured builds a current-format entry
func Structured(quantity int, price *string) Entry {
	return Entry{Kind: KindStructured, Quantity: quantity, Price: price}
}

// Legacy builds an old-format bare-quantity entry
func Legacy(quantity int) Entry {
	return Entry{Kind: KindLegacy, Quantity: quantity}
}

// EffectiveQuantity is the stored quantity coerced to a non-negative integer
func (e Entry) EffectiveQuantity() int {
	if e.Kind == KindInvalid || e.Malformed || e.Quantity < 0 {
		return 0
	}
	return e.Quantity
}

// MigrateLegacy turns a legacy entry into a structured one priced at the catalog price,
// so the upgrade never changes the effective price of the line
func MigrateLegacy(e Entry, catalogPrice decimal.Decimal) Entry {
	if e.Kind != KindLegacy {
		return e
	}
	price := catalogPrice.StringFixed(2)
	return Entry{Kind: KindStructured, Quantity: e.Quantity, Malformed: e.Malformed, Price: &price}
}

// Raw maps model id strings to entries
type Raw map[string]Entry

// Clone returns a copy that can be mutated without touching r
func (r Raw) Clone() Raw {
	out := make(Raw, len(r))
	for k, v := range r {
		if v.Price != nil {
			p := *v.Price
			v.Price = &p
		}
		out[k] = v
	}
	return out
}

// Keys returns the model id keys in a stable order
func (r Raw) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type structuredJSON struct {
	Quantity int     `json:"quantity"`
	Price    *string `json:"price,omitempty"`
}

// MarshalJSON writes the entry back in the shape it represents
func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindStructured:
		return json.Marshal(structuredJSON{Quantity: e.EffectiveQuantity(), Price: e.Price})
	case KindLegacy:
		return json.Marshal(e.EffectiveQuantity())
	default:
		if len(e.raw) == 0 {
			return []byte("null"), nil
		}
		return e.raw, nil
	}
}

// UnmarshalJSON decodes one value into the tagged variant, never failing
func (e *Entry) UnmarshalJSON(data []byte) error {
	*e = decodeEntry(data)
	return nil
}

// Encode serializes the selection for persistence
func Encode(r Raw) ([]byte, error) {
	if r == nil {
		r = Raw{}
	}
	return json.Marshal(map[string]Entry(r))
}

// Decode parses a persisted blob. Every value is decoded independently into its variant;
// only a blob that is not a JSON object yields ErrCorruptSelection.
func Decode(data []byte) (Raw, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Raw{}, nil
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return Raw{}, fmt.Errorf("%w: %v", ErrCorruptSelection, err)
	}
	out := make(Raw, len(values))
	for k, v := range values {
		out[k] = decodeEntry(v)
	}
	return out, nil
}

func decodeEntry(data []byte) Entry {
	trimmed := bytes.TrimSpace(data)
	invalid := Entry{Kind: KindInvalid, raw: append(json.RawMessage(nil), trimmed...)}
	if len(trimmed) == 0 {
		return invalid
	}

	switch c := trimmed[0]; {
	case c == '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return invalid
		}
		e := Entry{Kind: KindStructured}
		q, ok := decodeQuantity(fields["quantity"])
		e.Quantity, e.Malformed = q, !ok
		if rawPrice, present := fields["price"]; present {
			e.Price = decodePrice(rawPrice)
		}
		return e
	case c == '"' || c == '-' || (c >= '0' && c <= '9'):
		q, ok := decodeQuantity(trimmed)
		return Entry{Kind: KindLegacy, Quantity: q, Malformed: !ok}
	default:
		return invalid
	}
}

// decodeQuantity accepts JSON integers, integral floats and numeric strings.
// Negative, fractional, missing or non-numeric values are reported as not ok.
func decodeQuantity(data json.RawMessage) (int, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var text string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	} else {
		text = string(trimmed)
	}

	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// decodePrice keeps the stored override as text. Numbers are kept in their literal form;
// null means absent; anything else is kept verbatim so validation can flag it.
func decodePrice(data json.RawMessage) *string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var s string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err != nil {
			s = string(trimmed)
		}
		return &s
	}
	s = string(trimmed)
	return &s
}
