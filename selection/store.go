package selection

import (
	"context"
	"errors"

	"luch-agregator/models"
)

// ErrModelNotFound is returned when a model id does not resolve to a catalog model
var ErrModelNotFound = errors.New("model not found")

// Store persists the selection of one session. Save always replaces the whole value.
type Store interface {
	// Load returns an empty selection when nothing was persisted yet
	Load(ctx context.Context) (Raw, error)
	Save(ctx context.Context, raw Raw) error
}

// Catalog is the read access to product models the selection logic needs
type Catalog interface {
	// GetModel returns ErrModelNotFound for unknown ids
	GetModel(ctx context.Context, id int64) (*models.ProductModel, error)
	// GetModels returns the models found among ids; missing ids are simply absent
	GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error)
}

// MemoryStore keeps a selection in process memory. It stores the encoded blob so
// reads go through the same decoding as the Redis store.
type MemoryStore struct {
	blob []byte
}

// NewMemoryStore returns a store seeded with blob (may be nil)
func NewMemoryStore(blob []byte) *MemoryStore {
	return &MemoryStore{blob: blob}
}

func (s *MemoryStore) Load(ctx context.Context) (Raw, error) {
	return Decode(s.blob)
}

func (s *MemoryStore) Save(ctx context.Context, raw Raw) error {
	data, err := Encode(raw)
	if err != nil {
		return err
	}
	s.blob = data
	return nil
}

// Blob returns the persisted bytes
func (s *MemoryStore) Blob() []byte {
	return s.blob
}
