package selection

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"luch-agregator/logger"
	"luch-agregator/models"
)

type fakeCatalog struct {
	models     map[int64]*models.ProductModel
	batchCalls int
	err        error
}

func newFakeCatalog(ms ...models.ProductModel) *fakeCatalog {
	c := &fakeCatalog{models: map[int64]*models.ProductModel{}}
	for i := range ms {
		m := ms[i]
		c.models[m.ID] = &m
	}
	return c
}

func (c *fakeCatalog) GetModel(ctx context.Context, id int64) (*models.ProductModel, error) {
	if c.err != nil {
		return nil, c.err
	}
	m, ok := c.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrModelNotFound, id)
	}
	return m, nil
}

func (c *fakeCatalog) GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error) {
	c.batchCalls++
	if c.err != nil {
		return nil, c.err
	}
	out := map[int64]*models.ProductModel{}
	for _, id := range ids {
		if m, ok := c.models[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func model(id int64, product, name, price string) models.ProductModel {
	return models.ProductModel{
		ID:           id,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		ProductID:    id * 10,
		ProductName:  product,
		CategoryID:   1,
		CategoryName: "Светильники",
	}
}

func testCatalog() *fakeCatalog {
	return newFakeCatalog(
		model(3, "Лампа", "A", "10.00"),
		model(5, "Лампа", "B", "20.00"),
		model(7, "Прожектор", "P1", "3.33"),
	)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func nop() *logger.Logger { return logger.Nop() }

func countSeverity(notices []Notice, sev Severity) int {
	n := 0
	for _, notice := range notices {
		if notice.Severity == sev {
			n++
		}
	}
	return n
}
