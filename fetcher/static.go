package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

var errSelectorAbsent = errors.New("no matching element in static document")

// Static is a Page that fetches documents over plain HTTP with a colly collector.
// It never runs scripts, so AwaitSelector only inspects the fetched markup.
type Static struct {
	collector *colly.Collector

	body   []byte
	status int
}

// NewStatic builds a Static page. Revisits are allowed since the retry pass
// loads the same URLs again.
func NewStatic(userAgent string) *Static {
	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &Static{collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		s.status = r.StatusCode
		s.body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			s.status = r.StatusCode
		}
	})
	return s
}

// Collector exposes the underlying collector, mainly to swap its transport.
func (s *Static) Collector() *colly.Collector {
	return s.collector
}

// Load issues a GET for url. Error statuses fail the load.
func (s *Static) Load(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return NavigationError{URL: url, Err: err}
	}

	s.body = nil
	s.status = 0
	s.collector.SetRequestTimeout(timeout)

	if err := s.collector.Visit(url); err != nil {
		return NavigationError{URL: url, Err: classifyError(err, s.status)}
	}
	if s.status >= http.StatusBadRequest {
		return NavigationError{URL: url, Err: classifyError(nil, s.status)}
	}
	return nil
}

// AwaitSelector checks the fetched document once.
func (s *Static) AwaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if s.body == nil {
		return SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: ErrNoDocument}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(s.body)))
	if err != nil {
		return SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: fmt.Errorf("parse document: %w", err)}
	}
	if doc.Find(selector).Length() == 0 {
		return SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: errSelectorAbsent}
	}
	return nil
}

// Content returns the fetched body.
func (s *Static) Content(ctx context.Context) (string, error) {
	if s.body == nil {
		return "", ErrNoDocument
	}
	return string(s.body), nil
}

// Close is a no-op; the collector holds no resources beyond idle connections.
func (s *Static) Close() error {
	return nil
}
