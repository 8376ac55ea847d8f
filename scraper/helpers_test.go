package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-marketplace/config"
	"github.com/aluiziolira/go-scrape-marketplace/fetcher"
	"github.com/aluiziolira/go-scrape-marketplace/models"
	"github.com/aluiziolira/go-scrape-marketplace/pipeline"
)

const testBaseURL = "https://marketplace.test"

var errRefused = errors.New("connection refused")

// fakePage serves canned markup per URL. Successive Content reads of the same
// URL walk through its list; the last entry repeats.
type fakePage struct {
	pages     map[string][]string
	failLoads map[string]int
	missing   map[string]bool

	current string
	loads   []string
	reads   map[string]int
}

func newFakePage() *fakePage {
	return &fakePage{
		pages:     make(map[string][]string),
		failLoads: make(map[string]int),
		missing:   make(map[string]bool),
		reads:     make(map[string]int),
	}
}

func (f *fakePage) serve(url string, contents ...string) {
	f.pages[url] = contents
}

func (f *fakePage) Load(ctx context.Context, url string, _ time.Duration) error {
	f.loads = append(f.loads, url)
	f.current = ""
	if err := ctx.Err(); err != nil {
		return fetcher.NavigationError{URL: url, Err: err}
	}
	if f.failLoads[url] > 0 {
		f.failLoads[url]--
		return fetcher.NavigationError{URL: url, Err: errRefused}
	}
	if _, ok := f.pages[url]; !ok {
		return fetcher.NavigationError{URL: url, Err: fmt.Errorf("no page for %s", url)}
	}
	f.current = url
	return nil
}

func (f *fakePage) AwaitSelector(_ context.Context, selector string, timeout time.Duration) error {
	if f.current == "" || f.missing[f.current] {
		return fetcher.SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: context.DeadlineExceeded}
	}
	return nil
}

func (f *fakePage) Content(context.Context) (string, error) {
	if f.current == "" {
		return "", fetcher.ErrNoDocument
	}
	contents := f.pages[f.current]
	i := f.reads[f.current]
	f.reads[f.current]++
	if i >= len(contents) {
		i = len(contents) - 1
	}
	return contents[i], nil
}

func (f *fakePage) Close() error { return nil }

func (f *fakePage) loadCount(url string) int {
	n := 0
	for _, l := range f.loads {
		if l == url {
			n++
		}
	}
	return n
}

// sleepRecorder stands in for sleepContext and records each requested delay.
type sleepRecorder struct {
	delays []time.Duration
	hook   func()
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	if s.hook != nil {
		s.hook()
	}
	return ctx.Err()
}

type collectWriter struct {
	records []*models.AppRecord
}

func (w *collectWriter) Write(records []*models.AppRecord) error {
	w.records = append(w.records, records...)
	return nil
}

func (w *collectWriter) Close() error    { return nil }
func (w *collectWriter) Validate() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.NavigationTimeout = time.Second
	cfg.ListingSelectorTimeout = time.Second
	cfg.DetailSelectorTimeout = time.Second
	cfg.StabilizeMaxAttempts = 5
	return cfg
}

func testLayout(t *testing.T) pipeline.Layout {
	t.Helper()
	return pipeline.NewLayout(t.TempDir(), time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
}

func listingURL(page int) string {
	return fmt.Sprintf("%s/apps?page=%d", testBaseURL, page)
}

// listingHTML renders one listing anchor per href. An empty href renders an
// anchor with no href attribute.
func listingHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="grid">`)
	for _, href := range hrefs {
		if href == "" {
			b.WriteString(`<a class="css-4xcoe5">loading</a>`)
			continue
		}
		fmt.Fprintf(&b, `<a class="css-4xcoe5" href="%s">app</a>`, href)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

const detailFixture = `<html><head><title>Acme Notes | Marketplace</title></head><body>
<div class="css-i3jcei">
  <h1 class="css-1lc23xd"> Acme Notes </h1>
  <p class="MuiTypography-root MuiTypography-body2 css-1t6gqoh">Acme Inc</p>
  <span class="css-1vuggv1">Productivity</span>
  <span class="css-1vuggv1">Meetings</span>
  <div class="css-1gpdksz">
    Take notes during meetings.
  </div>
  <div class="MuiBox-root css-10khgmf">
    <span class="MuiTypography-root css-rpyf5q">meeting:read</span>
    <span class="MuiTypography-root css-vhnn71">View your meetings</span>
  </div>
  <ul><li class="css-16lkeer">Pro account</li></ul>
  <section>
    <h3>App can view information</h3>
    <div><span class="css-d0uhtl">Meeting details</span></div>
  </section>
  <section>
    <h3>App can manage information</h3>
    <div><span class="css-d0uhtl">Recordings</span></div>
  </section>
  <a class="MuiLink-root" href="https://acme.test/docs">Documentation</a>
  <a class="MuiLink-root" href="https://acme.test/privacy">Privacy Policy</a>
  <a class="MuiLink-root">Support</a>
</div>
</body></html>`

const policyFixture = `<html><body><h1>Acme privacy policy</h1></body></html>`
