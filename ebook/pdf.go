package ebook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/coreybb/storybook/models"
)

const (
	coverWidth         = 400
	coverHeight        = 300
	illustrationSize   = 200
	titleGap           = 24
	paragraphGap       = 12
	illustrationMargin = 12
)

// Layout is the page geometry in points.
type Layout struct {
	Name                     string
	Width, Height            float64
	Top, Bottom, Left, Right float64
}

var (
	// LayoutLetter is US Letter with one-inch margins.
	LayoutLetter = Layout{Name: "letter", Width: 612, Height: 792, Top: 72, Bottom: 72, Left: 72, Right: 72}
	// LayoutKDP is a 7x10in print-on-demand trim with half-inch margins.
	LayoutKDP = Layout{Name: "kdp", Width: 504, Height: 720, Top: 36, Bottom: 36, Left: 36, Right: 36}
)

// LayoutByName returns the named layout, defaulting to LayoutLetter.
func LayoutByName(name string) Layout {
	if name == LayoutKDP.Name {
		return LayoutKDP
	}
	return LayoutLetter
}

// PDFRenderer lays out a story into a paginated PDF.
type PDFRenderer struct {
	fetcher Fetcher
	fontDir string
	layout  Layout
	logger  *zap.Logger
}

// NewPDFRenderer creates a renderer. fontDir may be empty, in which case the
// built-in PDF fonts are used.
func NewPDFRenderer(fetcher Fetcher, fontDir string, layout Layout, logger *zap.Logger) (*PDFRenderer, error) {
	if fetcher == nil {
		return nil, errors.New("image fetcher is required")
	}
	if layout.Width == 0 {
		layout = LayoutLetter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFRenderer{fetcher: fetcher, fontDir: fontDir, layout: layout, logger: logger.Named("pdf")}, nil
}

// Render returns the PDF bytes for title and pages. The first page's
// illustration doubles as the cover. Every failure is a RenderError.
func (r *PDFRenderer) Render(ctx context.Context, title string, pages []models.StoryPage, age int) ([]byte, error) {
	startTime := time.Now()
	if len(pages) == 0 {
		return nil, models.NewRenderError("render pdf", errors.New("no pages to render"))
	}
	if pages[0].ImageURL == "" {
		return nil, models.NewRenderError("render pdf", errors.New("no cover image"))
	}

	typo := TypographyFor(age)
	doc := &pdfDoc{
		pdf: fpdf.NewCustom(&fpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "pt",
			Size:           fpdf.SizeType{Wd: r.layout.Width, Ht: r.layout.Height},
		}),
		layout:  r.layout,
		fetcher: r.fetcher,
		images:  make(map[string]string),
	}
	doc.setTypography(typo, r.fontDir)

	pdf := doc.pdf
	pdf.SetTitle(title, true)
	pdf.SetCreator("storybook", true)
	pdf.SetMargins(r.layout.Left, r.layout.Top, r.layout.Right)
	pdf.SetAutoPageBreak(true, r.layout.Bottom)
	pdf.AddPage()

	pdf.SetFont(doc.family, doc.titleStyle, typo.TitleSize)
	pdf.MultiCell(0, typo.TitleSize*leadingFactor, doc.tr(title), "", "C", false)
	pdf.Ln(titleGap)

	if err := doc.placeImage(ctx, pages[0].ImageURL, coverWidth, coverHeight); err != nil {
		return nil, models.NewRenderError("embed cover image", err)
	}
	pdf.Ln(titleGap)

	pdf.SetFont(doc.family, "", typo.BodySize)
	for i, page := range pages {
		pdf.MultiCell(0, typo.Leading(), doc.tr(page.Text), "", "L", false)
		pdf.Ln(paragraphGap)
		if page.ImageURL == "" {
			continue
		}
		if err := doc.placeImage(ctx, page.ImageURL, illustrationSize, illustrationSize); err != nil {
			return nil, models.NewRenderError(fmt.Sprintf("embed image for page %d", i+1), err)
		}
		pdf.Ln(illustrationMargin)
	}

	if pdf.Err() {
		return nil, models.NewRenderError("render pdf", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, models.NewRenderError("write pdf", err)
	}

	r.logger.Info("Rendered PDF",
		zap.String("title", title),
		zap.Int("pages", len(pages)),
		zap.String("typography", typo.Style),
		zap.String("layout", r.layout.Name),
		zap.Int("bytes", buf.Len()),
		zap.Duration("took", time.Since(startTime)))
	return buf.Bytes(), nil
}

// pdfDoc carries per-render state.
type pdfDoc struct {
	pdf        *fpdf.Fpdf
	layout     Layout
	fetcher    Fetcher
	family     string
	titleStyle string
	tr         func(string) string
	images     map[string]string // url -> registered image name
}

// setTypography registers the band's TTF font if available, otherwise falls
// back to the core font. Core fonts need text translated to cp1252.
func (d *pdfDoc) setTypography(typo Typography, fontDir string) {
	if fontDir != "" {
		fontPath := filepath.Join(fontDir, typo.Family+".ttf")
		if _, err := os.Stat(fontPath); err == nil {
			d.pdf.AddUTF8Font(typo.Family, "", fontPath)
			d.family = typo.Family
			d.titleStyle = ""
			d.tr = func(s string) string { return s }
			return
		}
	}
	d.family = typo.CoreFamily
	d.titleStyle = "B"
	d.tr = d.pdf.UnicodeTranslatorFromDescriptor("")
}

// placeImage fetches url (once per document) and draws it centered at the
// current position, starting a new page if the block does not fit.
func (d *pdfDoc) placeImage(ctx context.Context, url string, w, h float64) error {
	name, ok := d.images[url]
	if !ok {
		img, err := d.fetcher.Fetch(ctx, url)
		if err != nil {
			return err
		}
		name = fmt.Sprintf("img-%d", len(d.images)+1)
		d.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: img.PDFType()}, bytes.NewReader(img.Data))
		if d.pdf.Err() {
			return d.pdf.Error()
		}
		d.images[url] = name
	}

	if d.pdf.GetY()+h > d.layout.Height-d.layout.Bottom {
		d.pdf.AddPage()
	}
	x := (d.layout.Width - w) / 2
	y := d.pdf.GetY()
	d.pdf.ImageOptions(name, x, y, w, h, false, fpdf.ImageOptions{}, 0, "")
	d.pdf.SetY(y + h)
	return d.pdf.Error()
}
