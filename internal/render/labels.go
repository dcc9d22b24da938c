package render

import (
	"context"

	appI18n "github.com/pavelanni/quizfeedback/internal/i18n"
)

// Labels are the human-readable strings used by the Markdown renderer.
type Labels struct {
	Title         string
	TitleFor      string // followed by the source file name
	StudentAnswer string
	Feedback      string
	CorrectAnswer string
	Question      string
	NoFeedback    string // followed by the question identifier
	InvalidAnswer string // followed by the question identifier
}

// DefaultLabels are the English report labels.
var DefaultLabels = Labels{
	Title:         "Feedback Report",
	TitleFor:      "Feedback Report for",
	StudentAnswer: "Student Answer",
	Feedback:      "Feedback",
	CorrectAnswer: "Correct Answer",
	Question:      "Question",
	NoFeedback:    "No feedback found for question",
	InvalidAnswer: "Invalid answer for question",
}

// LabelsFromContext returns labels translated with the localizer in ctx.
// i18n.Init must have been called.
func LabelsFromContext(ctx context.Context) Labels {
	return Labels{
		Title:         appI18n.T(ctx, "ReportTitle"),
		TitleFor:      appI18n.T(ctx, "ReportTitleFor"),
		StudentAnswer: appI18n.T(ctx, "StudentAnswer"),
		Feedback:      appI18n.T(ctx, "Feedback"),
		CorrectAnswer: appI18n.T(ctx, "CorrectAnswer"),
		Question:      appI18n.T(ctx, "Question"),
		NoFeedback:    appI18n.T(ctx, "NoFeedback"),
		InvalidAnswer: appI18n.T(ctx, "InvalidAnswer"),
	}
}
