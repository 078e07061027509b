package service

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"luch-agregator/logger"
	"luch-agregator/utils"
)

//go:embed templates/offer_pdf.html
var pdfTemplateFS embed.FS

const (
	fontRegularFile = "DejaVuSans.ttf"
	fontBoldFile    = "DejaVuSans-Bold.ttf"
	documentDate    = "02.01.2006"
)

// PDFRendererConfig is fixed at construction time
type PDFRendererConfig struct {
	FontsDir   string
	ChromePath string
	// ResolveLocalFiles makes the browser load model images straight from the media root
	// through file:// URLs. When unset every image is inlined as a data URI.
	ResolveLocalFiles bool
	Timeout           time.Duration
}

// PDFRenderer renders offers to HTML and prints them to PDF with headless Chrome
type PDFRenderer struct {
	cfg    PDFRendererConfig
	images *ImageOptimizer
	tmpl   *template.Template
	log    *logger.Logger
}

// Ensure PDFRenderer implements PDFRendererInterface
var _ PDFRendererInterface = (*PDFRenderer)(nil)

// NewPDFRenderer creates a new PDFRenderer
func NewPDFRenderer(cfg PDFRendererConfig, images *ImageOptimizer, log *logger.Logger) (*PDFRenderer, error) {
	tmpl, err := template.ParseFS(pdfTemplateFS, "templates/offer_pdf.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &PDFRenderer{cfg: cfg, images: images, tmpl: tmpl, log: log.With("component", "PDFRenderer")}, nil
}

type pdfRow struct {
	ImageSrc     template.URL
	ImageMissing string
	Name         string
	Details      []string
	Quantity     int
	UnitPrice    string
	LineTotal    string
}

type pdfData struct {
	FontFaces template.CSS
	Texts     any
	Number    string
	Date      string
	Rows      []pdfRow
	Total     string
}

// Render builds the offer HTML and prints it to PDF
func (r *PDFRenderer) Render(ctx context.Context, offer *Offer) ([]byte, error) {
	html, err := r.BuildHTML(offer)
	if err != nil {
		return nil, err
	}
	return r.printToPDF(ctx, html)
}

// BuildHTML renders the self-contained offer page
func (r *PDFRenderer) BuildHTML(offer *Offer) (string, error) {
	fontFaces, err := r.fontFaces()
	if err != nil {
		return "", err
	}

	data := pdfData{
		FontFaces: fontFaces,
		Texts:     offer.Texts,
		Date:      offer.Date.Format(documentDate),
		Rows:      make([]pdfRow, 0, len(offer.Items)),
		Total:     utils.FormatRUB(offer.Total),
	}
	if offer.Number != nil {
		data.Number = strconv.FormatInt(*offer.Number, 10)
	}

	for _, item := range offer.Items {
		row := pdfRow{
			Name:      item.Model.DisplayName(),
			Details:   detailLines(item.Model.Details),
			Quantity:  item.Quantity,
			UnitPrice: utils.FormatRUB(item.UnitPrice),
			LineTotal: utils.FormatRUB(item.LineTotal),
		}
		if item.Model.Image != "" {
			row.ImageSrc = r.imageSource(item.Model.Image)
			if row.ImageSrc == "" {
				row.ImageMissing = item.Model.Image
			}
		}
		data.Rows = append(data.Rows, row)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// fontFaces embeds the DejaVu Sans pair so Cyrillic text renders without system fonts
func (r *PDFRenderer) fontFaces() (template.CSS, error) {
	var css strings.Builder
	for _, font := range []struct {
		file   string
		weight string
	}{
		{fontRegularFile, "normal"},
		{fontBoldFile, "bold"},
	} {
		path := filepath.Join(r.cfg.FontsDir, font.file)
		raw, err := os.ReadFile(path)
		if err != nil {
			r.log.Error("❌ Font file not available", "path", path, "error", err)
			return "", fmt.Errorf("%w: font %s could not be loaded from %s", ErrResourceUnavailable, font.file, r.cfg.FontsDir)
		}
		fmt.Fprintf(&css, "@font-face { font-family: \"DejaVu Sans\"; font-weight: %s; src: url(\"data:font/ttf;base64,%s\") format(\"truetype\"); }\n",
			font.weight, base64.StdEncoding.EncodeToString(raw))
	}
	return template.CSS(css.String()), nil
}

// imageSource returns the img src for a model image, or "" when it cannot be shown
func (r *PDFRenderer) imageSource(ref string) template.URL {
	if r.cfg.ResolveLocalFiles {
		path, err := r.images.ResolvePath(ref)
		if err != nil {
			return ""
		}
		if _, err := os.Stat(path); err != nil {
			r.log.Warn("⚠️  Image file not found on disk", "image", ref, "path", path)
			return ""
		}
		return template.URL("file://" + filepath.ToSlash(path))
	}

	img, err := r.images.Load(ref)
	if err != nil {
		if !errors.Is(err, ErrImageNotFound) {
			r.log.Warn("⚠️  Image skipped", "image", ref, "error", err)
		}
		return ""
	}
	return template.URL(img.DataURI())
}

func (r *PDFRenderer) printToPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox, // Required for running in Docker/containers
		chromedp.DisableGPU,
	)
	if chromePath := detectChromePath(r.cfg.ChromePath); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	if r.cfg.ResolveLocalFiles {
		opts = append(opts, chromedp.Flag("allow-file-access-from-files", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	chromedpCtx, chromedpCancel := chromedp.NewContext(allocCtx)
	defer chromedpCancel()

	var load chromedp.Action
	if r.cfg.ResolveLocalFiles {
		// file:// images only resolve from a page that is itself a local file
		f, err := os.CreateTemp("", "offer-*.html")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp page: %w", err)
		}
		defer os.Remove(f.Name())
		if _, err := f.WriteString(html); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write temp page: %w", err)
		}
		f.Close()
		load = chromedp.Navigate("file://" + filepath.ToSlash(f.Name()))
	} else {
		load = chromedp.Tasks{
			chromedp.Navigate("about:blank"),
			chromedp.ActionFunc(func(ctx context.Context) error {
				frameTree, err := page.GetFrameTree().Do(ctx)
				if err != nil {
					return err
				}
				return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
			}),
		}
	}

	var pdfBuf []byte
	var fontsReady bool
	err := chromedp.Run(chromedpCtx,
		load,
		chromedp.WaitReady("body"),
		// Wait for the embedded fonts before printing
		chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &fontsReady,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams { return p.WithAwaitPromise(true) }),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4, margins come from the @page rule
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	r.log.Debug("✓ PDF printed", "bytes", len(pdfBuf))
	return pdfBuf, nil
}

// detectChromePath returns the configured Chrome/Chromium executable when it exists,
// then the first common installation path found
func detectChromePath(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	// Common paths to check
	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// detailLines splits free-text details into trimmed non-empty lines
func detailLines(details string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(details, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
