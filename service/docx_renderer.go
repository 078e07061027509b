package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/pricing"
)

const (
	placeholderDate   = "{{document_date}}"
	placeholderNumber = "{{document_number}}"
	productTableMark  = "[PRODUCT_TABLE]"
	numberFallback    = "б/н"

	// 4 cm in EMU
	docxImageWidth = 1440000
	// docPr ids of inserted pictures start here to stay clear of the template's own
	docxFirstDrawingID = 1000

	relsPath         = "word/_rels/document.xml.rels"
	contentTypesPath = "[Content_Types].xml"
	documentPath     = "word/document.xml"
)

// docxVariants maps a variant name to its template file in the templates directory
var docxVariants = map[string]string{
	"main":  "commercial_offer_template.docx",
	"umed":  "commercial_offer_umed_template.docx",
	"pos78": "commercial_offer_pos78_template.docx",
}

var (
	paragraphRe = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*?)?(?:/>|>.*?</w:p>)`)
	// self-closing <w:t/> must match before the open form
	textRunRe = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*?)?/>|<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	partRe    = regexp.MustCompile(`^word/(document|header\d*|footer\d*)\.xml$`)
)

// DOCXRenderer fills the offer templates: placeholders in every text part and the
// product table in place of the marker paragraph
type DOCXRenderer struct {
	templatesDir string
	images       *ImageOptimizer
	log          *logger.Logger
}

// Ensure DOCXRenderer implements DOCXRendererInterface
var _ DOCXRendererInterface = (*DOCXRenderer)(nil)

// NewDOCXRenderer creates a new DOCXRenderer
func NewDOCXRenderer(templatesDir string, images *ImageOptimizer, log *logger.Logger) *DOCXRenderer {
	return &DOCXRenderer{templatesDir: templatesDir, images: images, log: log.With("component", "DOCXRenderer")}
}

// HasVariant reports whether variant names a known template
func (r *DOCXRenderer) HasVariant(variant string) bool {
	_, ok := docxVariants[variant]
	return ok
}

// DOCXVariants lists the known template variants
func DOCXVariants() []string {
	names := make([]string, 0, len(docxVariants))
	for name := range docxVariants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type zipPart struct {
	header *zip.FileHeader
	data   []byte
}

// Render fills the variant template with the offer
func (r *DOCXRenderer) Render(ctx context.Context, offer *Offer, variant string) ([]byte, error) {
	file, ok := docxVariants[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	path := filepath.Join(r.templatesDir, file)

	parts, err := readZipParts(path)
	if err != nil {
		r.log.Error("❌ DOCX template not available", "variant", variant, "path", path, "error", err)
		return nil, fmt.Errorf("%w: template %s: %v", ErrResourceUnavailable, file, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	number := numberFallback
	if offer.Number != nil {
		number = strconv.FormatInt(*offer.Number, 10)
	}
	replacer := strings.NewReplacer(
		placeholderDate, offer.Date.Format(documentDate),
		placeholderNumber, number,
	)

	var doc *zipPart
	index := map[string]*zipPart{}
	for _, p := range parts {
		index[p.header.Name] = p
		if !partRe.MatchString(p.header.Name) {
			continue
		}
		p.data = replacePlaceholders(p.data, replacer)
		if p.header.Name == documentPath {
			doc = p
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: template %s has no %s", ErrResourceUnavailable, file, documentPath)
	}

	table := newOfferTable(r.images, r.log)
	tableXML := table.build(offer)
	body, found := replaceMarkerParagraph(doc.data, tableXML)
	if !found {
		r.log.Error("❌ DOCX template has no product table marker", "variant", variant, "path", path)
		return nil, fmt.Errorf("%w: template %s has no %s marker", ErrResourceUnavailable, file, productTableMark)
	}
	doc.data = body

	if len(table.media) > 0 {
		rels, ok := index[relsPath]
		if !ok {
			rels = &zipPart{
				header: &zip.FileHeader{Name: relsPath, Method: zip.Deflate},
				data:   []byte(xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`),
			}
			parts = append(parts, rels)
		}
		rels.data = appendRelationships(rels.data, table.media)

		if types, ok := index[contentTypesPath]; ok {
			types.data = ensureJPEGContentType(types.data)
		}
		for _, m := range table.media {
			parts = append(parts, &zipPart{
				header: &zip.FileHeader{Name: "word/" + m.target, Method: zip.Store},
				data:   m.data,
			})
		}
	}

	out, err := writeZipParts(parts)
	if err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	r.log.Debug("✓ DOCX rendered", "variant", variant, "items", len(offer.Items), "images", len(table.media), "bytes", len(out))
	return out, nil
}

func readZipParts(path string) ([]*zipPart, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	parts := make([]*zipPart, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		header := f.FileHeader
		parts = append(parts, &zipPart{header: &header, data: data})
	}
	return parts, nil
}

// writeZipParts writes parts in their original order
func writeZipParts(parts []*zipPart) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		h := &zip.FileHeader{
			Name:     p.header.Name,
			Method:   p.header.Method,
			Modified: p.header.Modified,
		}
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// replacePlaceholders rewrites every paragraph whose joined run text contains a placeholder.
// Word splits text across runs freely, so the replaced text goes into the first run and the
// other runs of the paragraph are emptied.
func replacePlaceholders(part []byte, replacer *strings.Replacer) []byte {
	return paragraphRe.ReplaceAllFunc(part, func(p []byte) []byte {
		text := paragraphText(p)
		replaced := replacer.Replace(text)
		if replaced == text {
			return p
		}
		first := true
		return textRunRe.ReplaceAllFunc(p, func([]byte) []byte {
			if !first {
				return []byte("<w:t></w:t>")
			}
			first = false
			return []byte(`<w:t xml:space="preserve">` + escapeText(replaced) + `</w:t>`)
		})
	})
}

// replaceMarkerParagraph swaps the first paragraph holding the table marker for tableXML
func replaceMarkerParagraph(part []byte, tableXML string) ([]byte, bool) {
	for _, loc := range paragraphRe.FindAllIndex(part, -1) {
		if !strings.Contains(paragraphText(part[loc[0]:loc[1]]), productTableMark) {
			continue
		}
		out := make([]byte, 0, len(part)+len(tableXML))
		out = append(out, part[:loc[0]]...)
		out = append(out, tableXML...)
		out = append(out, part[loc[1]:]...)
		return out, true
	}
	return part, false
}

func paragraphText(p []byte) string {
	var sb strings.Builder
	for _, m := range textRunRe.FindAllSubmatch(p, -1) {
		sb.WriteString(unescapeText(string(m[1])))
	}
	return sb.String()
}

var unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeText(s string) string {
	return unescaper.Replace(s)
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return escaper.Replace(s)
}

type docxMedia struct {
	relID  string
	target string
	data   []byte
}

func appendRelationships(rels []byte, media []docxMedia) []byte {
	var sb strings.Builder
	for _, m := range media {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, m.relID, m.target)
	}
	closing := []byte("</Relationships>")
	i := bytes.LastIndex(rels, closing)
	if i < 0 {
		return rels
	}
	out := make([]byte, 0, len(rels)+sb.Len())
	out = append(out, rels[:i]...)
	out = append(out, sb.String()...)
	return append(out, rels[i:]...)
}

func ensureJPEGContentType(types []byte) []byte {
	if bytes.Contains(types, []byte(`Extension="jpeg"`)) {
		return types
	}
	closing := []byte("</Types>")
	i := bytes.LastIndex(types, closing)
	if i < 0 {
		return types
	}
	def := `<Default Extension="jpeg" ContentType="image/jpeg"/>`
	out := make([]byte, 0, len(types)+len(def))
	out = append(out, types[:i]...)
	out = append(out, def...)
	return append(out, types[i:]...)
}

// offerTable builds the WordprocessingML of the product table and collects the pictures it embeds
type offerTable struct {
	images   *ImageOptimizer
	log      *logger.Logger
	media    []docxMedia
	byRef    map[string]*docxPicture
	drawings int
}

type docxPicture struct {
	relID  string
	width  int
	height int
}

// Column widths in twentieths of a point
var docxColumns = [4]int{4500, 1400, 1800, 1938}

func newOfferTable(images *ImageOptimizer, log *logger.Logger) *offerTable {
	return &offerTable{images: images, log: log, byRef: map[string]*docxPicture{}}
}

func (t *offerTable) build(offer *Offer) string {
	var sb strings.Builder
	sb.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	sb.WriteString(borderSet("top", "left", "bottom", "right", "insideH", "insideV"))
	sb.WriteString(`</w:tblBorders><w:tblLayout w:type="fixed"/></w:tblPr><w:tblGrid>`)
	for _, w := range docxColumns {
		fmt.Fprintf(&sb, `<w:gridCol w:w="%d"/>`, w)
	}
	sb.WriteString(`</w:tblGrid>`)

	sb.WriteString(`<w:tr><w:trPr><w:tblHeader/></w:trPr>`)
	for i, title := range []string{"Товар", "Кол-во, шт.", "Цена за ед., руб.", "Сумма, руб."} {
		sb.WriteString(tableCell(docxColumns[i], 0, paragraph("center", textRun(title, true, false))))
	}
	sb.WriteString(`</w:tr>`)

	for _, item := range offer.Items {
		sb.WriteString(`<w:tr><w:trPr><w:cantSplit/></w:trPr>`)
		sb.WriteString(tableCell(docxColumns[0], 0, t.productCell(item)))
		sb.WriteString(tableCell(docxColumns[1], 0, paragraph("center", textRun(strconv.Itoa(item.Quantity), false, false))))
		sb.WriteString(tableCell(docxColumns[2], 0, paragraph("right", textRun(pricing.FormatAmount(item.UnitPrice), false, false))))
		sb.WriteString(tableCell(docxColumns[3], 0, paragraph("right", textRun(pricing.FormatAmount(item.LineTotal), true, false))))
		sb.WriteString(`</w:tr>`)
	}

	sb.WriteString(`<w:tr>`)
	sb.WriteString(tableCell(docxColumns[0]+docxColumns[1]+docxColumns[2], 3, paragraph("right", textRun("Итого:", true, false))))
	sb.WriteString(tableCell(docxColumns[3], 0, paragraph("right", textRun(pricing.FormatAmount(offer.Total), true, false))))
	sb.WriteString(`</w:tr></w:tbl>`)
	return sb.String()
}

func (t *offerTable) productCell(item models.LineItem) string {
	var sb strings.Builder
	m := item.Model
	if m.Image != "" {
		pic, err := t.picture(m.Image)
		switch {
		case errors.Is(err, ErrImageNotFound):
			t.log.Warn("⚠️  Image file not found on disk", "model_id", m.ID, "image", m.Image)
			sb.WriteString(paragraph("", textRun(fmt.Sprintf("[Изображение модели '%s' не найдено на диске: %s]", m.Name, m.Image), false, true)))
		case err != nil:
			t.log.Warn("⚠️  Image could not be loaded", "model_id", m.ID, "image", m.Image, "error", err)
			sb.WriteString(paragraph("", textRun(fmt.Sprintf("[Ошибка загрузки изображения: %s]", m.Name), false, true)))
		default:
			sb.WriteString(paragraph("center", t.drawingRun(pic)))
		}
	}
	sb.WriteString(paragraph("", textRun(m.DisplayName(), true, false)))
	for _, line := range detailLines(m.Details) {
		sb.WriteString(paragraph("", textRun(line, false, true)))
	}
	return sb.String()
}

// picture loads an image once per document and registers it as a media part
func (t *offerTable) picture(ref string) (*docxPicture, error) {
	if pic, ok := t.byRef[ref]; ok {
		return pic, nil
	}
	img, err := t.images.Load(ref)
	if err != nil {
		return nil, err
	}
	n := len(t.media) + 1
	pic := &docxPicture{relID: fmt.Sprintf("rIdOfferImg%d", n), width: img.Width, height: img.Height}
	t.media = append(t.media, docxMedia{
		relID:  pic.relID,
		target: fmt.Sprintf("media/offer_image_%d.jpeg", n),
		data:   img.Data,
	})
	t.byRef[ref] = pic
	return pic, nil
}

func (t *offerTable) drawingRun(pic *docxPicture) string {
	cx := docxImageWidth
	cy := docxImageWidth
	if pic.width > 0 && pic.height > 0 {
		cy = docxImageWidth * pic.height / pic.width
	}
	// every drawing needs its own docPr id, even when the picture repeats
	id := docxFirstDrawingID + t.drawings
	t.drawings++

	return fmt.Sprintf(`<w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/><wp:docPr id="%[3]d" name="Picture %[3]d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%[3]d" name="offer_image_%[3]d.jpeg"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[4]s" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		cx, cy, id, pic.relID)
}

func paragraph(align string, runs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<w:p>`)
	if align != "" {
		fmt.Fprintf(&sb, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	for _, r := range runs {
		sb.WriteString(r)
	}
	sb.WriteString(`</w:p>`)
	return sb.String()
}

func textRun(text string, bold, italic bool) string {
	var sb strings.Builder
	sb.WriteString(`<w:r>`)
	if bold || italic {
		sb.WriteString(`<w:rPr>`)
		if bold {
			sb.WriteString(`<w:b/>`)
		}
		if italic {
			sb.WriteString(`<w:i/>`)
		}
		sb.WriteString(`</w:rPr>`)
	}
	sb.WriteString(`<w:t xml:space="preserve">` + escapeText(text) + `</w:t></w:r>`)
	return sb.String()
}

// tableCell wraps content paragraphs; span > 1 merges that many grid columns
func tableCell(width, span int, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/>`, width)
	if span > 1 {
		fmt.Fprintf(&sb, `<w:gridSpan w:val="%d"/>`, span)
	}
	sb.WriteString(`<w:tcBorders>` + borderSet("top", "left", "bottom", "right") + `</w:tcBorders>`)
	sb.WriteString(`<w:vAlign w:val="center"/></w:tcPr>`)
	sb.WriteString(content)
	sb.WriteString(`</w:tc>`)
	return sb.String()
}

func borderSet(sides ...string) string {
	var sb strings.Builder
	for _, side := range sides {
		fmt.Fprintf(&sb, `<w:%s w:val="single" w:sz="12" w:space="0" w:color="000000"/>`, side)
	}
	return sb.String()
}
