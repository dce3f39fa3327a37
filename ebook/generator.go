package ebook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	epub "github.com/go-shiori/go-epub"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"

	"github.com/coreybb/storybook/models"
)

const defaultAuthor = "Storybook"

// EPUBGenerator builds an EPUB edition of a persisted book.
type EPUBGenerator struct {
	fetcher Fetcher
	logger  *zap.Logger
}

func NewEPUBGenerator(fetcher Fetcher, logger *zap.Logger) (*EPUBGenerator, error) {
	if fetcher == nil {
		return nil, errors.New("image fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EPUBGenerator{fetcher: fetcher, logger: logger.Named("epub")}, nil
}

// GenerateEPUB returns the EPUB bytes for book. Illustrations are fetched
// through the fetcher and embedded as data URLs, so go-epub never touches
// the network itself.
func (g *EPUBGenerator) GenerateEPUB(ctx context.Context, book *models.Book, pages []models.StoryPage) ([]byte, error) {
	if book == nil {
		return nil, errors.New("book cannot be nil")
	}
	if len(pages) == 0 {
		return nil, models.NewRenderError("generate epub", errors.New("no pages to render"))
	}
	startTime := time.Now()

	title := book.Title
	if title == "" {
		title = "Storybook"
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return nil, models.NewRenderError("create epub", err)
	}
	e.SetAuthor(defaultAuthor)
	e.SetLang("en")

	typo := TypographyFor(book.Age)
	cssPath, err := e.AddCSS(dataurl.New([]byte(stylesheet(typo)), "text/css").String(), "book.css")
	if err != nil {
		return nil, models.NewRenderError("add epub stylesheet", err)
	}

	images := make(map[string]string)
	embed := func(url string, index int) (string, error) {
		if path, ok := images[url]; ok {
			return path, nil
		}
		img, err := g.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", err
		}
		ext := strings.ToLower(img.PDFType())
		path, err := e.AddImage(dataurl.New(img.Data, img.MIME).String(), fmt.Sprintf("image-%03d.%s", index, ext))
		if err != nil {
			return "", err
		}
		images[url] = path
		return path, nil
	}

	var cover strings.Builder
	fmt.Fprintf(&cover, "<h1>%s</h1>", html.EscapeString(title))
	if pages[0].ImageURL != "" {
		path, err := embed(pages[0].ImageURL, 1)
		if err != nil {
			return nil, models.NewRenderError("embed cover image", err)
		}
		fmt.Fprintf(&cover, `<div class="cover"><img src="%s" alt="%s"/></div>`, path, html.EscapeString(title))
	}
	if _, err := e.AddSection(cover.String(), title, "title.xhtml", cssPath); err != nil {
		return nil, models.NewRenderError("add epub section", err)
	}

	for i, page := range pages {
		var body strings.Builder
		fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString(page.Text))
		if page.ImageURL != "" {
			path, err := embed(page.ImageURL, i+1)
			if err != nil {
				return nil, models.NewRenderError(fmt.Sprintf("embed image for page %d", i+1), err)
			}
			fmt.Fprintf(&body, `<div class="illustration"><img src="%s" alt="%s"/></div>`, path, html.EscapeString(page.ImageDescription))
		}
		sectionTitle := fmt.Sprintf("Page %d", i+1)
		if _, err := e.AddSection(body.String(), sectionTitle, fmt.Sprintf("page-%03d.xhtml", i+1), cssPath); err != nil {
			return nil, models.NewRenderError("add epub section", err)
		}
	}

	var buf bytes.Buffer
	if _, err := e.WriteTo(&buf); err != nil {
		return nil, models.NewRenderError("write epub", err)
	}

	g.logger.Info("Generated EPUB",
		zap.String("book_id", book.ID),
		zap.Int("pages", len(pages)),
		zap.Int("images", len(images)),
		zap.Int("bytes", buf.Len()),
		zap.Duration("took", time.Since(startTime)))
	return buf.Bytes(), nil
}

func stylesheet(typo Typography) string {
	family := "sans-serif"
	if typo.Style == StyleFormal {
		family = "serif"
	}
	return fmt.Sprintf(`body { font-family: %s; font-size: %.0fpt; line-height: %.1f; }
h1 { font-size: %.0fpt; text-align: center; }
.cover img { width: 100%%; }
.illustration { text-align: center; }
.illustration img { max-width: 60%%; }
`, family, typo.BodySize, leadingFactor, typo.TitleSize)
}
