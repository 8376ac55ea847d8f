package parser

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aluiziolira/go-scrape-marketplace/models"
)

// ValidateRecord ensures the extractor produced a record of the expected shape.
func ValidateRecord(r *models.AppRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.AppURL) == "" {
		return fmt.Errorf("record missing app url")
	}
	if strings.TrimSpace(r.SiteSnapshotFilePath) == "" {
		return fmt.Errorf("record missing snapshot path for %s", r.AppURL)
	}
	if r.PrivacyPolicyLoadedSuccessfully && r.PrivacyPolicyFilePath == nil {
		return fmt.Errorf("record %s has a loaded privacy policy without a snapshot path", r.AppURL)
	}
	return nil
}

// SanitizeTitle strips every character that is not an ASCII letter or digit.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SnapshotKey builds the filesystem-safe key for an app's snapshot files.
// When the page title sanitizes to nothing the last path segment of the link is used.
func SnapshotKey(title, link string) string {
	if key := SanitizeTitle(title); key != "" {
		return key
	}
	if parsed, err := url.Parse(link); err == nil {
		if key := SanitizeTitle(path.Base(parsed.Path)); key != "" {
			return key
		}
	}
	return "untitled"
}

// NormalizeText trims surrounding whitespace from extracted DOM text.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

// IsPlaceholderLink reports whether a listing href has not been rendered yet.
func IsPlaceholderLink(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" {
		return true
	}
	last := href[strings.LastIndex(href, "/")+1:]
	return last == "undefined" || last == "null"
}
