// Package views holds the templ components of the web UI.
package views

import (
	"context"
	"fmt"

	appI18n "github.com/pavelanni/quizfeedback/internal/i18n"
	"github.com/pavelanni/quizfeedback/internal/model"
)

func path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

type downloadLink struct {
	format string
	label  string
}

// downloadLinks lists the report downloads; PDF only when a converter is configured.
func downloadLinks(pdfEnabled bool) []downloadLink {
	links := []downloadLink{
		{"md", "DownloadMarkdown"},
		{"txt", "DownloadText"},
	}
	if pdfEnabled {
		links = append(links, downloadLink{"pdf", "DownloadPDF"})
	}
	return append(links, downloadLink{"json", "DownloadJSON"})
}

func score(r model.ReportInfo) string {
	return fmt.Sprintf("%d/%d", r.Correct, r.Total)
}

func summaryLine(ctx context.Context, s model.Summary) string {
	return appI18n.Td(ctx, "SummaryLine", map[string]any{
		"Correct": s.Correct, "Incorrect": s.Incorrect, "NotFound": s.NotFound, "Invalid": s.Invalid,
	})
}
