// Package lookup answers "wiki <term>" with the first paragraph of the
// matching article.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/garyellow/chatbot-go/internal/bot"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/garyellow/chatbot-go/internal/scraper"
)

// Module constants
const (
	ModuleName = "lookup"

	CmdWiki = "lookup.wiki"
)

// maxSummary caps the reply length in runes.
const maxSummary = 600

// Fetcher loads and parses an HTML page.
type Fetcher interface {
	GetDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Article is a looked up summary.
type Article struct {
	Title   string
	URL     string
	Summary string
}

// Handler serves wiki lookups. Concurrent lookups of the same term share
// one fetch.
type Handler struct {
	baseURL  string
	fetcher  Fetcher
	inflight scraper.Coalescer
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewHandler creates a Handler reading articles under baseURL.
func NewHandler(baseURL string, fetcher Fetcher, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		metrics: m,
		logger:  log,
	}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() map[string]bot.Handler {
	return map[string]bot.Handler{CmdWiki: h.handleWiki}
}

func (h *Handler) Actions() []bot.Route     { return nil }
func (h *Handler) Events() []bot.EventRoute { return nil }

func (h *Handler) handleWiki(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	term := strings.TrimSpace(req.Args.Target)
	if term == "" {
		return bot.Text("Usage: `wiki <term>`"), nil
	}

	art, err := h.Lookup(ctx, term)
	switch {
	case domerrors.IsNotFound(err):
		return bot.Text(fmt.Sprintf("No article found for %q.", term)), nil
	case err != nil:
		return bot.None(), domerrors.NewWrapper(ModuleName, "wiki").Wrap(err, "The wiki is not answering right now. Try again later.")
	}
	return bot.Text(fmt.Sprintf("*%s*\n%s\n<%s>", art.Title, art.Summary, art.URL)), nil
}

// Lookup fetches the article for term.
func (h *Handler) Lookup(ctx context.Context, term string) (*Article, error) {
	start := time.Now()
	key := strings.ToLower(term)

	v, shared, err := h.inflight.Do(ctx, key, func() (any, error) {
		return h.fetch(ctx, term)
	})
	if shared {
		h.metrics.RecordLookupDedup()
	}

	status := "ok"
	switch {
	case domerrors.IsNotFound(err):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	h.metrics.RecordLookup(status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return v.(*Article), nil
}

func (h *Handler) fetch(ctx context.Context, term string) (*Article, error) {
	articleURL := ArticleURL(h.baseURL, term)
	doc, err := h.fetcher.GetDocument(ctx, articleURL)
	if err != nil {
		var se *scraper.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: article %q", domerrors.ErrNotFound, term)
		}
		h.logger.WithError(err).WarnContext(ctx, "Wiki fetch failed", "url", articleURL)
		return nil, err
	}

	summary := FirstParagraph(doc)
	if summary == "" {
		return nil, fmt.Errorf("%w: article %q has no text", domerrors.ErrNotFound, term)
	}
	title := strings.TrimSpace(doc.Find("#firstHeading").First().Text())
	if title == "" {
		title = term
	}
	return &Article{Title: title, URL: articleURL, Summary: summary}, nil
}

// ArticleURL builds the article link for term.
func ArticleURL(baseURL, term string) string {
	title := strings.ReplaceAll(strings.TrimSpace(term), " ", "_")
	return baseURL + "/wiki/" + url.PathEscape(title)
}

// FirstParagraph returns the first non-empty paragraph of the article body,
// without citation markers, capped at maxSummary runes.
func FirstParagraph(doc *goquery.Document) string {
	var out string
	doc.Find("#mw-content-text p, article p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		s.Find("sup.reference, .mw-ref").Remove()
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		out = text
		return false
	})
	if r := []rune(out); len(r) > maxSummary {
		out = strings.TrimSpace(string(r[:maxSummary])) + "…"
	}
	return out
}
