package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luch-agregator/logger"
)

func newTestPDFRenderer(t *testing.T, withFonts bool, resolveLocal bool) (*PDFRenderer, string) {
	t.Helper()
	fonts := t.TempDir()
	if withFonts {
		require.NoError(t, os.WriteFile(filepath.Join(fonts, fontRegularFile), []byte("regular"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(fonts, fontBoldFile), []byte("bold"), 0644))
	}
	media := t.TempDir()
	r, err := NewPDFRenderer(PDFRendererConfig{FontsDir: fonts, ResolveLocalFiles: resolveLocal},
		NewImageOptimizer(media, "", logger.Nop()), logger.Nop())
	require.NoError(t, err)
	return r, media
}

func TestPDFRenderer_BuildHTML(t *testing.T) {
	r, media := newTestPDFRenderer(t, true, false)
	writePNG(t, media, "lamp.png", 40, 20)

	lamp := testModel(3, "Лампа", "A", "10.00")
	lamp.Image = "lamp.png"
	lamp.Details = "Мощность 10 Вт\n\n  IP65  "
	spot := testModel(5, "Прожектор", "P1", "1234.5")
	spot.Image = "gone.png"

	html, err := r.BuildHTML(testOffer(int64Ptr(42),
		lineItem(lamp, 2, "10.00"),
		lineItem(spot, 1000, "1234.5"),
	))
	require.NoError(t, err)

	assert.Contains(t, html, "№ 42 от 05.03.2024")
	assert.Contains(t, html, "Лампа - A")
	assert.Contains(t, html, `<div class="details">Мощность 10 Вт</div>`)
	assert.Contains(t, html, `<div class="details">IP65</div>`)
	assert.Contains(t, html, `src="data:image/jpeg;base64,`)
	assert.Contains(t, html, "[Изображение не найдено: gone.png]")
	assert.Contains(t, html, "1 234 520.00")
	assert.Contains(t, html, "1 234 500.00")
	assert.Contains(t, html, "base64,cmVndWxhcg==")
	assert.Contains(t, html, "font-weight: bold")
	assert.Contains(t, html, "ООО Луч")
}

func TestPDFRenderer_BuildHTMLWithoutNumber(t *testing.T) {
	r, _ := newTestPDFRenderer(t, true, false)
	html, err := r.BuildHTML(testOffer(nil, lineItem(testModel(3, "Лампа", "A", "1"), 1, "1")))
	require.NoError(t, err)
	assert.Contains(t, html, "№ б/н от 05.03.2024")
}

func TestPDFRenderer_BuildHTMLLocalFiles(t *testing.T) {
	r, media := newTestPDFRenderer(t, true, true)
	writePNG(t, media, "lamp.png", 10, 10)
	lamp := testModel(3, "Лампа", "A", "10.00")
	lamp.Image = "lamp.png"

	html, err := r.BuildHTML(testOffer(int64Ptr(1), lineItem(lamp, 1, "10.00")))
	require.NoError(t, err)
	assert.Contains(t, html, `src="file://`)
	assert.True(t, strings.Contains(html, "lamp.png"))
}

func TestPDFRenderer_MissingFonts(t *testing.T) {
	r, _ := newTestPDFRenderer(t, false, false)
	_, err := r.BuildHTML(testOffer(int64Ptr(1), lineItem(testModel(3, "Лампа", "A", "1"), 1, "1")))
	require.ErrorIs(t, err, ErrResourceUnavailable)
}

func TestDetailLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, detailLines(" a \r\n\r\n b"))
	assert.Nil(t, detailLines("   "))
}
