// Package report turns the accumulated state of a run into its summary and log text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-marketplace/models"
)

const separator = "==============================="

// Input is everything the reporter aggregates. Slices are copied, not retained.
type Input struct {
	Start              time.Time
	End                time.Time
	Links              []string
	Records            int
	Errors             int
	FailedListingPages []string
	FirstPassFailures  []string
	SecondPassFailures []string
}

// Summarize builds the run summary. It performs no I/O.
func Summarize(in Input) *models.RunSummary {
	end := in.End
	if end.IsZero() {
		end = time.Now()
	}
	return &models.RunSummary{
		StartTime:          in.Start,
		EndTime:            end,
		Duration:           end.Sub(in.Start),
		TotalLinks:         len(in.Links),
		RecordCount:        in.Records,
		ErrorCount:         in.Errors,
		FailedListingPages: clone(in.FailedListingPages),
		FirstPassFailures:  clone(in.FirstPassFailures),
		SecondPassFailures: clone(in.SecondPassFailures),
	}
}

// Format renders the plain-text log block appended to the run log and mailed out.
func Format(s *models.RunSummary) string {
	var b strings.Builder

	for _, page := range s.FailedListingPages {
		fmt.Fprintf(&b, "Failed to load directory page: %s\n", page)
	}
	if len(s.SecondPassFailures) > 0 {
		fmt.Fprintf(&b, "Failed to load after retry:\n%s\n", strings.Join(s.SecondPassFailures, "\n"))
	} else {
		b.WriteString("\nAll links loaded successfully after retry!\n")
	}

	fmt.Fprintf(&b, "Program execution time: %s seconds\n", formatSeconds(s.Duration))
	fmt.Fprintf(&b, "Total Number Apps in Marketplace Today: %d\n", s.TotalLinks)
	fmt.Fprintf(&b, "Total Number of Errors in Program Run: %d\n", s.ErrorCount)
	fmt.Fprintf(&b, "Apps Links that didn't load on First Pass: %s\n", strings.Join(s.FirstPassFailures, " "))
	fmt.Fprintf(&b, "Total Number of Links that didn't load on second pass: %d\n", s.FailedSecondPass())
	fmt.Fprintf(&b, "Apps Links that didn't load on Second Pass: %s\n", strings.Join(s.SecondPassFailures, " "))
	fmt.Fprintf(&b, "Total Number Apps Successfully Scraped: %d\n", s.RecordCount)
	b.WriteString(separator + "\n")
	return b.String()
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
