package scraper

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-marketplace/parser"
)

// Marketplace markup. The site layout is fixed; these track its generated class names.
const (
	selListingLink     = `a[class="css-4xcoe5"]`
	selListingReady    = ".css-4xcoe5"
	selDetailReady     = ".css-i3jcei"
	selNamePrimary     = ".css-1lc23xd"
	selNameSecondary   = ".css-1gf10il"
	selDevPrimary      = ".MuiTypography-root.MuiTypography-body2.css-1t6gqoh"
	selDevSecondary    = ".MuiBox-root.css-0 a"
	selCategory        = ".css-1vuggv1"
	selDescription     = ".css-1gpdksz"
	selScope           = ".MuiBox-root.css-10khgmf"
	selScopeName       = ".MuiTypography-root.css-rpyf5q"
	selScopeValue      = ".MuiTypography-root.css-vhnn71"
	selUserRequirement = ".css-16lkeer"
	selPermission      = ".css-d0uhtl"
	selExternalLink    = ".MuiLink-root"

	headerView   = "App can view information"
	headerManage = "App can manage information"
)

// External link labels, matched exactly against the anchor text.
const (
	labelDocumentation = "Documentation"
	labelPrivacyPolicy = "Privacy Policy"
	labelSupport       = "Support"
	labelTermsOfUse    = "Terms of Use"
)

var externalLinkLabels = []string{labelDocumentation, labelPrivacyPolicy, labelSupport, labelTermsOfUse}

// textQuery extracts one text value from a document snapshot.
type textQuery func(doc *goquery.Document) (string, error)

// firstText reads the text of the first element matching selector.
func firstText(selector string) textQuery {
	return func(doc *goquery.Document) (string, error) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", fmt.Errorf("no element matches %q", selector)
		}
		return parser.NormalizeText(sel.Text()), nil
	}
}

// firstOf tries each query in order. The first success wins; if all fail the
// errors are joined.
func firstOf(queries ...textQuery) textQuery {
	return func(doc *goquery.Document) (string, error) {
		errs := make([]error, 0, len(queries))
		for _, q := range queries {
			value, err := q(doc)
			if err == nil {
				return value, nil
			}
			errs = append(errs, err)
		}
		return "", errors.Join(errs...)
	}
}

var (
	appNameQuery     = firstOf(firstText(selNamePrimary), firstText(selNameSecondary))
	developerQuery   = firstOf(firstText(selDevPrimary), firstText(selDevSecondary))
	descriptionQuery = firstText(selDescription)
)

// allTexts returns the text of every element matching selector, never nil.
func allTexts(doc *goquery.Document, selector string) []string {
	out := []string{}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, parser.NormalizeText(s.Text()))
	})
	return out
}

// childText is the text of the first descendant matching selector, or "".
func childText(s *goquery.Selection, selector string) string {
	return parser.NormalizeText(s.Find(selector).First().Text())
}
