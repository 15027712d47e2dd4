// Package pdf renders the collected answers as a paginated two-column
// report.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/answers"
)

// FileName is the name the report is saved under.
const FileName = "unsafe_act_report.pdf"

// ContentType of the rendered document.
const ContentType = "application/pdf"

const (
	margin      = 15.0
	labelWidth  = 58.0
	lineHeight  = 5.5
	cellPadding = 1.8
	logoHeight  = 16.0
	fontFamily  = "Helvetica"
)

// Document is a rendered report.
type Document struct {
	Name  string
	Data  []byte
	Pages int
}

// Renderer lays out answers into a PDF.
type Renderer struct {
	title       string
	logo        LogoLoader
	logoTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle overrides the report heading.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(title) != "" {
			r.title = title
		}
	}
}

// WithLogo draws the image returned by loader in the page header.
func WithLogo(loader LogoLoader) Option {
	return func(r *Renderer) {
		r.logo = loader
	}
}

// WithLogoTimeout bounds the logo load. Zero waits for as long as the
// loader takes; on expiry the report is rendered without a logo.
func WithLogoTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d >= 0 {
			r.logoTimeout = d
		}
	}
}

// WithClock sets the source of the generation timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns a renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{
		title:  answers.DefaultTitle,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Render produces the report. A logo that fails to load is skipped.
func (r *Renderer) Render(ctx context.Context, rows []answers.Answer) (*Document, error) {
	logo := r.fetchLogo(ctx)
	generated := r.now()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, margin)
	doc.SetCreationDate(generated)
	doc.SetCatalogSort(true)
	doc.SetTitle(r.title, true)
	doc.AliasNbPages("")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFooterFunc(func() {
		doc.SetY(-margin + 3)
		doc.SetFont(fontFamily, "I", 8)
		doc.SetTextColor(110, 110, 110)
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	r.header(doc, tr, logo, generated)
	for _, row := range rows {
		r.row(doc, tr, row)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("pdf: layout: %w", err)
	}
	pages := doc.PageCount()

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	return &Document{Name: FileName, Data: buf.Bytes(), Pages: pages}, nil
}

type logoImage struct {
	png  []byte
	size [2]int
}

func (r *Renderer) fetchLogo(ctx context.Context) *logoImage {
	if r.logo == nil {
		return nil
	}
	if r.logoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.logoTimeout)
		defer cancel()
	}

	raw, err := loadLogo(ctx, r.logo)
	if err != nil {
		r.logger.Warn("logo unavailable, rendering without it", zap.Error(err))
		return nil
	}
	data, size, err := normaliseLogo(raw)
	if err != nil {
		r.logger.Warn("logo unreadable, rendering without it", zap.Error(err))
		return nil
	}
	return &logoImage{png: data, size: [2]int{size.X, size.Y}}
}

func (r *Renderer) header(doc *fpdf.Fpdf, tr func(string) string, logo *logoImage, generated time.Time) {
	left, top, _, _ := doc.GetMargins()
	titleX := left

	if logo != nil && logo.size[1] > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader("logo", opts, bytes.NewReader(logo.png))
		width := logoHeight * float64(logo.size[0]) / float64(logo.size[1])
		doc.ImageOptions("logo", left, top, width, logoHeight, false, opts, 0, "")
		titleX = left + width + 4
	}

	doc.SetXY(titleX, top+2)
	doc.SetFont(fontFamily, "B", 16)
	doc.SetTextColor(20, 20, 20)
	doc.CellFormat(0, 8, tr(r.title), "", 1, "L", false, 0, "")

	doc.SetX(titleX)
	doc.SetFont(fontFamily, "", 9)
	doc.SetTextColor(90, 90, 90)
	doc.CellFormat(0, 5, "Generated "+generated.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")

	y := top + logoHeight + 4
	if doc.GetY() > y {
		y = doc.GetY() + 2
	}
	doc.SetY(y)
	doc.SetTextColor(0, 0, 0)
}

// row draws one label | value pair. Values taller than the remaining page
// space continue on the next page.
func (r *Renderer) row(doc *fpdf.Fpdf, tr func(string) string, a answers.Answer) {
	left, _, right, _ := doc.GetMargins()
	pageW, pageH := doc.GetPageSize()
	valueWidth := pageW - left - right - labelWidth
	bottom := pageH - margin - 6

	doc.SetFont(fontFamily, "B", 10)
	labelLines := splitLines(doc, tr(a.Label), labelWidth-2*cellPadding)
	doc.SetFont(fontFamily, "", 10)
	valueLines := splitLines(doc, tr(a.Value), valueWidth-2*cellPadding)

	first := true
	for first || len(valueLines) > 0 {
		avail := int((bottom - doc.GetY() - 2*cellPadding) / lineHeight)
		need := len(valueLines)
		if first && len(labelLines) > need {
			need = len(labelLines)
		}
		if avail < 1 || (first && avail < need && avail < 3) {
			doc.AddPage()
			continue
		}

		take := min(avail, len(valueLines))
		lines := take
		var labels [][]byte
		if first {
			labels = labelLines[:min(len(labelLines), avail)]
			lines = max(lines, len(labels))
		}
		height := float64(lines)*lineHeight + 2*cellPadding
		y := doc.GetY()

		doc.SetFillColor(240, 242, 245)
		doc.Rect(left, y, labelWidth, height, "FD")
		doc.Rect(left+labelWidth, y, valueWidth, height, "D")

		doc.SetFont(fontFamily, "B", 10)
		for i, l := range labels {
			doc.SetXY(left+cellPadding, y+cellPadding+float64(i)*lineHeight)
			doc.CellFormat(labelWidth-2*cellPadding, lineHeight, string(l), "", 0, "L", false, 0, "")
		}
		doc.SetFont(fontFamily, "", 10)
		for i, l := range valueLines[:take] {
			doc.SetXY(left+labelWidth+cellPadding, y+cellPadding+float64(i)*lineHeight)
			doc.CellFormat(valueWidth-2*cellPadding, lineHeight, string(l), "", 0, "L", false, 0, "")
		}

		valueLines = valueLines[take:]
		doc.SetXY(left, y+height)
		first = false
		if len(valueLines) > 0 {
			doc.AddPage()
		}
	}
}

func splitLines(doc *fpdf.Fpdf, text string, width float64) [][]byte {
	var out [][]byte
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lines := doc.SplitLines([]byte(para), width)
		if len(lines) == 0 {
			lines = [][]byte{{}}
		}
		out = append(out, lines...)
	}
	return out
}
