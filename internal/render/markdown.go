// Package render turns report entries into Markdown, plain text, HTML and
// terminal output. Every format walks the same entry sequence.
package render

import (
	"fmt"
	"strings"

	"github.com/pavelanni/quizfeedback/internal/model"
)

// MarkdownOptions controls the Markdown layout.
type MarkdownOptions struct {
	// Banner puts the source file name in the title and in every question heading.
	Banner       bool
	ShowQuestion bool
	Labels       Labels
}

// Markdown renders the report as Markdown. Math markup in the bank text is
// passed through untouched.
func Markdown(r model.Report, opts MarkdownOptions) string {
	l := opts.Labels
	if l == (Labels{}) {
		l = DefaultLabels
	}
	banner := opts.Banner && r.Source != ""

	var lines []string
	if banner {
		lines = append(lines, fmt.Sprintf("# %s %s\n", l.TitleFor, r.Source))
	} else {
		lines = append(lines, fmt.Sprintf("# %s\n", l.Title))
	}

	for _, e := range r.Entries {
		if banner {
			lines = append(lines, fmt.Sprintf("### %s | %s\n", r.Source, e.QuestionID))
		} else {
			lines = append(lines, "## "+e.QuestionID)
		}

		switch e.Status {
		case model.StatusNotFound:
			lines = append(lines, fmt.Sprintf("**%s %s.**\n", l.NoFeedback, e.QuestionID))
			continue
		case model.StatusInvalidAnswer:
			lines = append(lines, fmt.Sprintf("**%s %s: %q.**\n", l.InvalidAnswer, e.QuestionID, strings.TrimSpace(e.RawAnswer)))
			continue
		}

		if opts.ShowQuestion && e.QuestionText != "" {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", l.Question, e.QuestionText))
		}
		lines = append(lines, fmt.Sprintf("- **%s:** %s", l.StudentAnswer, e.DisplayLetter()))
		lines = append(lines, fmt.Sprintf("- **%s:** %s", l.Feedback, e.Justification))
		if !e.Correct {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", l.CorrectAnswer, e.DisplayCorrectLetter()))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
