package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-marketplace/config"
	"github.com/aluiziolira/go-scrape-marketplace/fetcher"
	"github.com/aluiziolira/go-scrape-marketplace/models"
	"github.com/aluiziolira/go-scrape-marketplace/parser"
	"github.com/aluiziolira/go-scrape-marketplace/pipeline"
)

// Extractor turns one app detail page into an AppRecord.
//
// The detail page is loaded once and its markup captured; every field is then
// read from that static snapshot. The privacy policy is loaded on policyPage,
// which may be the same page as the detail page.
type Extractor struct {
	page       fetcher.Page
	policyPage fetcher.Page
	snapshots  *pipeline.SnapshotStore
	policies   *lru.Cache[string, string]
	cfg        *config.Config
	metrics    *Metrics
	logger     *slog.Logger
}

// NewExtractor builds an extractor. A nil policyPage reuses page.
func NewExtractor(page, policyPage fetcher.Page, snapshots *pipeline.SnapshotStore, cfg *config.Config, metrics *Metrics, logger *slog.Logger) (*Extractor, error) {
	if policyPage == nil {
		policyPage = page
	}
	if logger == nil {
		logger = slog.Default()
	}

	var policies *lru.Cache[string, string]
	if cfg.PolicyCacheSize > 0 {
		cache, err := lru.New[string, string](cfg.PolicyCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create policy cache: %w", err)
		}
		policies = cache
	}

	return &Extractor{
		page:       page,
		policyPage: policyPage,
		snapshots:  snapshots,
		policies:   policies,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Extract loads link and builds its record. Any failure other than the
// privacy policy capture is returned as ExtractionError and no record is made.
func (e *Extractor) Extract(ctx context.Context, link string) (*models.AppRecord, error) {
	doc, html, err := e.loadDetail(ctx, link)
	if err != nil {
		return nil, err
	}

	title := doc.Find("title").First().Text()
	key := parser.SnapshotKey(title, link)
	snapshotPath, err := e.snapshots.SaveSite(key, html)
	if err != nil {
		return nil, ExtractionError{URL: link, Step: "snapshot", Err: err}
	}

	appName, err := appNameQuery(doc)
	if err != nil {
		return nil, ExtractionError{URL: link, Step: "name", Err: err}
	}
	developer, err := developerQuery(doc)
	if err != nil {
		return nil, ExtractionError{URL: link, Step: "developer", Err: err}
	}
	description, err := descriptionQuery(doc)
	if err != nil {
		return nil, ExtractionError{URL: link, Step: "description", Err: err}
	}

	view, manage := classifyPermissions(doc, selPermission, headerView, headerManage)
	hrefs := externalLinks(doc)

	record := &models.AppRecord{
		AppName:                appName,
		Developer:              developer,
		AppURL:                 link,
		Categories:             allTexts(doc, selCategory),
		Description:            description,
		WorksIn:                allTexts(doc, selCategory),
		Scopes:                 scopes(doc),
		UserRequirements:       allTexts(doc, selUserRequirement),
		ViewPermissions:        view,
		ManagePermissions:      manage,
		DeveloperDocumentation: hrefs[labelDocumentation],
		DeveloperPrivacyPolicy: hrefs[labelPrivacyPolicy],
		DeveloperSupport:       hrefs[labelSupport],
		DeveloperTermsOfUse:    hrefs[labelTermsOfUse],
		SiteSnapshotFilePath:   snapshotPath,
	}

	if policy := record.DeveloperPrivacyPolicy; policy != nil {
		path, err := e.capturePolicy(ctx, key, resolveLink(link, *policy))
		if err != nil {
			e.logger.Warn("privacy policy not captured",
				slog.String("url", link),
				slog.String("policy", *policy),
				slog.Any("error", err),
			)
		} else {
			record.PrivacyPolicyLoadedSuccessfully = true
			record.PrivacyPolicyFilePath = &path
		}
	}

	return record, nil
}

func (e *Extractor) loadDetail(ctx context.Context, link string) (*goquery.Document, string, error) {
	start := time.Now()
	err := e.page.Load(ctx, link, e.cfg.NavigationTimeout)
	e.metrics.ObserveNavigation(kindDetail, time.Since(start), err)
	if err != nil {
		return nil, "", ExtractionError{URL: link, Step: "load", Err: err}
	}
	if err := e.page.AwaitSelector(ctx, selDetailReady, e.cfg.DetailSelectorTimeout); err != nil {
		return nil, "", ExtractionError{URL: link, Step: "load", Err: err}
	}

	html, err := e.page.Content(ctx)
	if err != nil {
		return nil, "", ExtractionError{URL: link, Step: "content", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", ExtractionError{URL: link, Step: "parse", Err: err}
	}
	return doc, html, nil
}

// capturePolicy snapshots the privacy policy page, reusing cached markup for
// policy URLs shared between apps.
func (e *Extractor) capturePolicy(ctx context.Context, key, policyURL string) (string, error) {
	html, ok := "", false
	if e.policies != nil {
		html, ok = e.policies.Get(policyURL)
	}

	if ok {
		e.metrics.IncPolicyCacheHit()
	} else {
		start := time.Now()
		err := e.policyPage.Load(ctx, policyURL, e.cfg.NavigationTimeout)
		e.metrics.ObserveNavigation(kindPolicy, time.Since(start), err)
		if err != nil {
			return "", err
		}
		html, err = e.policyPage.Content(ctx)
		if err != nil {
			return "", err
		}
		if e.policies != nil {
			e.policies.Add(policyURL, html)
		}
	}

	return e.snapshots.SavePolicy(key, html)
}

func scopes(doc *goquery.Document) []models.Scope {
	out := []models.Scope{}
	doc.Find(selScope).Each(func(_ int, s *goquery.Selection) {
		out = append(out, models.Scope{
			Name:  childText(s, selScopeName),
			Value: childText(s, selScopeValue),
		})
	})
	return out
}

// externalLinks finds the first link whose text is exactly each label.
// Labels with no match, or whose first match has no href, are absent.
func externalLinks(doc *goquery.Document) map[string]*string {
	found := make(map[string]*string, len(externalLinkLabels))
	matched := make(map[string]bool, len(externalLinkLabels))

	doc.Find(selExternalLink).Each(func(_ int, s *goquery.Selection) {
		label := s.Text()
		if matched[label] || !isExternalLinkLabel(label) {
			return
		}
		matched[label] = true
		if href, ok := s.Attr("href"); ok {
			found[label] = &href
		}
	})
	return found
}

func isExternalLinkLabel(text string) bool {
	for _, label := range externalLinkLabels {
		if text == label {
			return true
		}
	}
	return false
}

func resolveLink(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
