package lookup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/garyellow/chatbot-go/internal/bot"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/garyellow/chatbot-go/internal/scraper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goPage = `<html><body>
<h1 id="firstHeading">Go (programming language)</h1>
<div id="mw-content-text">
  <p>   </p>
  <p><b>Go</b> is a statically typed, compiled language<sup class="reference">[1]</sup>
  designed at Google.</p>
  <p>Second paragraph.</p>
</div></body></html>`

func newServer(t *testing.T, hits *atomic.Int32, gate <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if gate != nil {
			<-gate
		}
		if r.URL.Path != "/wiki/Go_(programming_language)" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, goPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(baseURL string, m *metrics.Metrics) *Handler {
	client := scraper.NewClient(scraper.Options{Timeout: 2 * time.Second, RequestsPerSecond: 100, Burst: 10})
	return NewHandler(baseURL, client, m, logger.NewWithWriter("error", io.Discard))
}

func TestWiki(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := newServer(t, &hits, nil)
	m := metrics.New(prometheus.NewRegistry())
	h := newHandler(srv.URL+"/", m)

	env, err := h.handleWiki(context.Background(), &bot.Request{Args: bot.Args{Target: "Go (programming language)"}})
	require.NoError(t, err)
	assert.Equal(t,
		"*Go (programming language)*\nGo is a statically typed, compiled language designed at Google.\n<"+srv.URL+"/wiki/Go_%28programming_language%29>",
		env.Text)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LookupRequestsTotal.WithLabelValues("ok")), 0)
}

func TestWiki_NotFound(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := newServer(t, &hits, nil)
	m := metrics.New(prometheus.NewRegistry())
	h := newHandler(srv.URL, m)

	env, err := h.handleWiki(context.Background(), &bot.Request{Args: bot.Args{Target: "Nonexistent thing"}})
	require.NoError(t, err)
	assert.Equal(t, `No article found for "Nonexistent thing".`, env.Text)
	assert.Equal(t, int32(1), hits.Load(), "404 is not retried")
	assert.InDelta(t, 1, testutil.ToFloat64(m.LookupRequestsTotal.WithLabelValues("not_found")), 0)

	env, err = h.handleWiki(context.Background(), &bot.Request{})
	require.NoError(t, err)
	assert.Contains(t, env.Text, "Usage")
}

func TestLookup_ConcurrentCallsShareOneFetch(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := newServer(t, &hits, gate)
	h := newHandler(srv.URL, metrics.New(prometheus.NewRegistry()))

	var wg sync.WaitGroup
	results := make([]*Article, 5)
	for i := range results {
		wg.Go(func() {
			art, err := h.Lookup(context.Background(), "Go (programming language)")
			assert.NoError(t, err)
			results[i] = art
		})
	}
	assert.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, art := range results {
		require.NotNil(t, art)
		assert.Equal(t, "Go (programming language)", art.Title)
	}
}

type errFetcher struct{ err error }

func (f errFetcher) GetDocument(context.Context, string) (*goquery.Document, error) {
	return nil, f.err
}

func TestWiki_FetchErrorCarriesUserMessage(t *testing.T) {
	t.Parallel()
	h := NewHandler("https://wiki.invalid", errFetcher{err: &scraper.StatusError{URL: "x", Code: 403}}, nil, logger.NewWithWriter("error", io.Discard))
	_, err := h.handleWiki(context.Background(), &bot.Request{Args: bot.Args{Target: "x"}})
	require.Error(t, err)
	assert.Equal(t, "The wiki is not answering right now. Try again later.", domerrors.GetUserMessage(err))
}

func TestFirstParagraph_Caps(t *testing.T) {
	t.Parallel()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<article><p>` + strings.Repeat("word ", 500) + `</p></article>`))
	require.NoError(t, err)
	got := FirstParagraph(doc)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), maxSummary+1)
}

func TestArticleURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://en.wikipedia.org/wiki/Rust_language", ArticleURL("https://en.wikipedia.org", " Rust language "))
}
