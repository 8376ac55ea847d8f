// Package models defines data structures for the scraper.
package models

import "time"

// Scope is a named permission capability requested by an app.
type Scope struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AppRecord represents one marketplace app extracted from its detail page.
type AppRecord struct {
	AppName                         string   `json:"appName"`
	Developer                       string   `json:"dev"`
	AppURL                          string   `json:"appUrl"`
	Categories                      []string `json:"categories"`
	Description                     string   `json:"description"`
	WorksIn                         []string `json:"worksIn"`
	Scopes                          []Scope  `json:"scopes"`
	UserRequirements                []string `json:"userRequirements"`
	ViewPermissions                 []string `json:"viewPermissions"`
	ManagePermissions               []string `json:"managePermissions"`
	DeveloperDocumentation          *string  `json:"developerDocumentation"`
	DeveloperPrivacyPolicy          *string  `json:"developerPrivacyPolicy"`
	DeveloperSupport                *string  `json:"developerSupport"`
	DeveloperTermsOfUse             *string  `json:"developerTermsOfUse"`
	PrivacyPolicyLoadedSuccessfully bool     `json:"privacyPolicyLoadedSuccessfully"`
	PrivacyPolicyFilePath           *string  `json:"privacyPolicyFilePath"`
	SiteSnapshotFilePath            string   `json:"siteSnapshotFilePath"`
}

// RunSummary holds the overall result of one scrape run.
type RunSummary struct {
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
	TotalLinks         int
	RecordCount        int
	ErrorCount         int
	FailedListingPages []string
	FirstPassFailures  []string
	SecondPassFailures []string
}

// FailedSecondPass returns the number of links that never produced a record.
func (s *RunSummary) FailedSecondPass() int {
	return len(s.SecondPassFailures)
}
