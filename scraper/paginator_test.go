package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestPaginator(page *fakePage) (*Paginator, *sleepRecorder) {
	cfg := testConfig()
	p := NewPaginator(page, cfg, NewMetrics(), nil)
	rec := &sleepRecorder{}
	p.sleep = rec.sleep
	return p, rec
}

func TestCollectLinksPageOrderAndDuplicates(t *testing.T) {
	page := newFakePage()
	page.serve(listingURL(1), listingHTML("/apps/a", "/apps/b"))
	page.serve(listingURL(2), listingHTML("/apps/b", "https://other.test/apps/c"))
	page.serve(listingURL(3), listingHTML("/apps/never"))

	p, _ := newTestPaginator(page)
	listing, err := p.CollectLinks(context.Background(), testBaseURL, 3)
	if err != nil {
		t.Fatalf("collect links: %v", err)
	}

	want := []string{
		testBaseURL + "/apps/a",
		testBaseURL + "/apps/b",
		testBaseURL + "/apps/b",
		"https://other.test/apps/c",
	}
	if diff := cmp.Diff(want, listing.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
	if len(listing.FailedPages) != 0 {
		t.Fatalf("unexpected failed pages: %v", listing.FailedPages)
	}
	if page.loadCount(listingURL(3)) != 0 {
		t.Fatalf("last listing page should not be visited by default")
	}
}

func TestCollectLinksIncludeLastPage(t *testing.T) {
	page := newFakePage()
	page.serve(listingURL(1), listingHTML("/apps/a"))
	page.serve(listingURL(2), listingHTML("/apps/b"))

	p, _ := newTestPaginator(page)
	p.cfg.IncludeLastPage = true
	listing, err := p.CollectLinks(context.Background(), testBaseURL, 2)
	if err != nil {
		t.Fatalf("collect links: %v", err)
	}
	if diff := cmp.Diff([]string{testBaseURL + "/apps/a", testBaseURL + "/apps/b"}, listing.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectLinksSinglePageVisitsNothing(t *testing.T) {
	page := newFakePage()
	p, _ := newTestPaginator(page)

	listing, err := p.CollectLinks(context.Background(), testBaseURL, 1)
	if err != nil {
		t.Fatalf("collect links: %v", err)
	}
	if listing.Links == nil || len(listing.Links) != 0 {
		t.Fatalf("links = %#v, want empty non-nil", listing.Links)
	}
	if len(page.loads) != 0 {
		t.Fatalf("expected no navigation, got %v", page.loads)
	}
}

func TestCollectLinksWaitsForPlaceholders(t *testing.T) {
	page := newFakePage()
	page.serve(listingURL(1),
		listingHTML("/apps/a", "/apps/undefined"),
		listingHTML("/apps/a", ""),
		listingHTML("/apps/a", "/apps/b"),
	)

	p, rec := newTestPaginator(page)
	listing, err := p.CollectLinks(context.Background(), testBaseURL, 2)
	if err != nil {
		t.Fatalf("collect links: %v", err)
	}
	if diff := cmp.Diff([]string{testBaseURL + "/apps/a", testBaseURL + "/apps/b"}, listing.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
	if len(rec.delays) != 2 {
		t.Fatalf("polls slept %d times, want 2", len(rec.delays))
	}
	for _, d := range rec.delays {
		if d != p.cfg.StabilizeInterval {
			t.Fatalf("poll delay = %v, want %v", d, p.cfg.StabilizeInterval)
		}
	}
}

func TestCollectLinksStabilizationBound(t *testing.T) {
	page := newFakePage()
	page.serve(listingURL(1), listingHTML("/apps/null"))
	page.serve(listingURL(2), listingHTML("/apps/b"))

	p, rec := newTestPaginator(page)
	p.cfg.StabilizeMaxAttempts = 3
	p.cfg.IncludeLastPage = true

	listing, err := p.CollectLinks(context.Background(), testBaseURL, 2)
	if err != nil {
		t.Fatalf("collect links: %v", err)
	}
	if diff := cmp.Diff([]string{listingURL(1)}, listing.FailedPages); diff != "" {
		t.Fatalf("failed pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{testBaseURL + "/apps/b"}, listing.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
	if got := page.reads[listingURL(1)]; got != 3 {
		t.Fatalf("listing read %d times, want 3", got)
	}
	if len(rec.delays) != 2 {
		t.Fatalf("polls slept %d times, want 2", len(rec.delays))
	}
}

func TestCollectLinksSkipsFailedPage(t *testing.T) {
	page := newFakePage()
	page.serve(listingURL(1), listingHTML("/apps/a"))
	page.serve(listingURL(2), listingHTML("/apps/b"))
	page.serve(listingURL(3), listingHTML("/apps/c"))
	page.failLoads[listingURL(1)] = 1
	page.missing[listingURL(2)] = true

	p, _ := newTestPaginator(page)
	listing, err := p.CollectLinks(context.Background(), testBaseURL, 4)
	if err != nil {
		t.Fatalf("collect links: %v", err)
	}
	if diff := cmp.Diff([]string{listingURL(1), listingURL(2)}, listing.FailedPages); diff != "" {
		t.Fatalf("failed pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{testBaseURL + "/apps/c"}, listing.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectLinksCancelled(t *testing.T) {
	page := newFakePage()
	page.serve(listingURL(1), listingHTML("/apps/a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, _ := newTestPaginator(page)
	listing, err := p.CollectLinks(ctx, testBaseURL, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if listing == nil || len(listing.Links) != 0 {
		t.Fatalf("expected an empty partial listing, got %#v", listing)
	}
}

func TestHasPlaceholder(t *testing.T) {
	tests := []struct {
		hrefs []string
		want  bool
	}{
		{hrefs: nil, want: false},
		{hrefs: []string{"/apps/a"}, want: false},
		{hrefs: []string{"/apps/a", "/apps/undefined"}, want: true},
		{hrefs: []string{"/apps/null"}, want: true},
		{hrefs: []string{""}, want: true},
	}
	for _, tt := range tests {
		if got := hasPlaceholder(tt.hrefs); got != tt.want {
			t.Fatalf("hasPlaceholder(%q) = %v, want %v", tt.hrefs, got, tt.want)
		}
	}
}
