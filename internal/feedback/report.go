package feedback

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/quizfeedback/internal/model"
)

// BuildReport resolves every record in order. It emits exactly one entry per record
// and never fails: missing entries and invalid letters become placeholder entries.
func BuildReport(records []model.StudentRecord, bank *model.Bank) []model.ReportEntry {
	entries := make([]model.ReportEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, buildEntry(rec, bank))
	}
	return entries
}

// Build wraps BuildReport into a report for the named answer sheet.
func Build(source string, records []model.StudentRecord, bank *model.Bank) model.Report {
	return model.Report{
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		Entries:     BuildReport(records, bank),
	}
}

func buildEntry(rec model.StudentRecord, bank *model.Bank) model.ReportEntry {
	entry := model.ReportEntry{
		QuestionID: rec.QuestionID,
		RawAnswer:  rec.Answer,
	}

	res, err := Resolve(rec.QuestionID, rec.Answer, bank)
	switch {
	case errors.Is(err, ErrEntryNotFound):
		entry.Status = model.StatusNotFound
		return entry
	case errors.Is(err, ErrInvalidAnswerLetter):
		slog.Warn("invalid answer letter", "question", rec.QuestionID, "answer", rec.Answer)
		entry.Status = model.StatusInvalidAnswer
		return entry
	}

	if keys := bank.Matches(rec.QuestionID); len(keys) > 1 {
		entry.AltKeys = keys[1:]
		slog.Warn("question matches several bank keys, using the first",
			"question", rec.QuestionID, "used", keys[0], "others", keys[1:])
	}

	entry.Status = model.StatusResolved
	entry.BankKey = res.Key
	entry.QuestionText = res.QuestionText
	entry.StudentLetter = res.StudentChoice
	entry.Justification = res.Justification
	entry.Correct = res.Correct()
	if !entry.Correct {
		entry.CorrectLetter = res.CorrectChoice
	}
	return entry
}
