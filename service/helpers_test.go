package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"luch-agregator/config"
	"luch-agregator/models"
	"luch-agregator/selection"
)

type fakeCatalog struct {
	models map[int64]*models.ProductModel
	err    error
}

func (c *fakeCatalog) GetModel(ctx context.Context, id int64) (*models.ProductModel, error) {
	if c.err != nil {
		return nil, c.err
	}
	m, ok := c.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, selection.ErrModelNotFound)
	}
	return m, nil
}

func (c *fakeCatalog) GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error) {
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

func testModel(id int64, product, name, price string) *models.ProductModel {
	return &models.ProductModel{
		ID:           id,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		ProductID:    id * 10,
		ProductName:  product,
		CategoryID:   1,
		CategoryName: "Светильники",
	}
}

func newTestCatalog() *fakeCatalog {
	return &fakeCatalog{models: map[int64]*models.ProductModel{
		3: testModel(3, "Лампа", "A", "10.00"),
		5: testModel(5, "Лампа", "B", "20.00"),
	}}
}

// fakeDocuments allocates numbers in memory the way the log table does
type fakeDocuments struct {
	rows        []models.DocumentLog
	allocateErr error
	attachErr   error
	attached    map[int64]string
}

func (d *fakeDocuments) Allocate(ctx context.Context, userID *int64, docType models.DocumentType) (*models.DocumentLog, error) {
	if d.allocateErr != nil {
		return nil, d.allocateErr
	}
	var next int64 = 1
	for _, r := range d.rows {
		if r.DocumentNumber >= next {
			next = r.DocumentNumber + 1
		}
	}
	row := models.DocumentLog{
		ID:             int64(len(d.rows) + 100),
		UserID:         userID,
		CreatedAt:      time.Now(),
		DocumentNumber: next,
		DocumentType:   docType,
	}
	d.rows = append(d.rows, row)
	return &row, nil
}

func (d *fakeDocuments) AttachFile(ctx context.Context, id int64, fileRef string) error {
	if d.attachErr != nil {
		return d.attachErr
	}
	if d.attached == nil {
		d.attached = map[int64]string{}
	}
	d.attached[id] = fileRef
	return nil
}

func (d *fakeDocuments) List(ctx context.Context) ([]models.DocumentLog, error) {
	return d.rows, nil
}

type fakePDF struct {
	offers []*Offer
	err    error
}

func (p *fakePDF) Render(ctx context.Context, offer *Offer) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.offers = append(p.offers, offer)
	return []byte("%PDF-1.4 fake"), nil
}

type fakeDOCX struct {
	variants []string
	calls    []string
}

func (d *fakeDOCX) HasVariant(variant string) bool {
	for _, v := range d.variants {
		if v == variant {
			return true
		}
	}
	return false
}

func (d *fakeDOCX) Render(ctx context.Context, offer *Offer, variant string) ([]byte, error) {
	d.calls = append(d.calls, variant)
	return []byte("PK fake"), nil
}

type fakeArchive struct {
	names []string
	err   error
}

func (a *fakeArchive) Upload(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.names = append(a.names, name)
	return "drive-" + name, nil
}

var errBoom = errors.New("boom")

// writePNG writes a w x h opaque PNG under dir/name
func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func testOffer(number *int64, items ...models.LineItem) *Offer {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return &Offer{
		Number: number,
		Date:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		Items:  items,
		Total:  total,
		Texts:  config.OfferTexts{Title: "Коммерческое предложение", CompanyName: "ООО Луч"},
	}
}

func lineItem(m *models.ProductModel, qty int, price string) models.LineItem {
	unit := decimal.RequireFromString(price)
	return models.LineItem{
		Model:     *m,
		Quantity:  qty,
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func int64Ptr(v int64) *int64 { return &v }
