package feedback

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pavelanni/quizfeedback/internal/model"
)

func newTestBank(t *testing.T, entries ...model.FeedbackEntry) *model.Bank {
	t.Helper()
	b := model.NewBank()
	for _, e := range entries {
		b.Add(e)
	}
	return b
}

func justifications(texts ...string) []model.Justification {
	var js []model.Justification
	for i, txt := range texts {
		js = append(js, model.Justification{Option: string(rune('A' + i)), Explanation: txt})
	}
	return js
}

func TestResolveWrongAnswer(t *testing.T) {
	bank := newTestBank(t, model.FeedbackEntry{
		Key:            "Q1_x",
		Justifications: justifications("j0", "j1"),
		CorrectChoice:  "a",
	})

	res, err := Resolve("Q1", "b", bank)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Justification != "j1" {
		t.Errorf("justification = %q, want j1", res.Justification)
	}
	if res.Correct() {
		t.Error("expected incorrect answer")
	}
	if res.CorrectChoice != "a" {
		t.Errorf("correct choice = %q, want a", res.CorrectChoice)
	}
	if res.Key != "Q1_x" {
		t.Errorf("key = %q, want Q1_x", res.Key)
	}
}

func TestResolveOutOfRangeLetter(t *testing.T) {
	bank := newTestBank(t, model.FeedbackEntry{
		Key:            "Q1_Eq_q_1",
		Justifications: justifications("j0", "j1", "j2", "j3"),
		CorrectChoice:  "c",
	})

	res, err := Resolve("Q1", "e", bank)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Justification != NoJustification {
		t.Errorf("justification = %q, want %q", res.Justification, NoJustification)
	}
}

func TestResolveNotFound(t *testing.T) {
	bank := newTestBank(t, model.FeedbackEntry{Key: "Q1_x", CorrectChoice: "a"})

	_, err := Resolve("Q9", "a", bank)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestResolveCaseInsensitiveLetter(t *testing.T) {
	bank := newTestBank(t, model.FeedbackEntry{
		Key:            "Q1_x",
		Justifications: justifications("j0", "j1"),
		CorrectChoice:  "B",
	})

	upper, err := Resolve("Q1", "B", bank)
	if err != nil {
		t.Fatalf("Resolve(B): %v", err)
	}
	lower, err := Resolve("Q1", " b ", bank)
	if err != nil {
		t.Fatalf("Resolve(b): %v", err)
	}
	if diff := cmp.Diff(upper, lower); diff != "" {
		t.Errorf("case mismatch (-B +b):\n%s", diff)
	}
	if !upper.Correct() {
		t.Error("expected B to be correct against correct_choice_ID B")
	}
}

func TestResolvePrefixAmbiguityUsesDefinitionOrder(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		wantKey string
	}{
		{"a first", []string{"Q1_a", "Q1_b"}, "Q1_a"},
		{"b first", []string{"Q1_b", "Q1_a"}, "Q1_b"},
		{"longer id shadows", []string{"Q10_x", "Q1_x"}, "Q10_x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := model.NewBank()
			for _, k := range tt.keys {
				bank.Add(model.FeedbackEntry{Key: k, Justifications: justifications(k), CorrectChoice: "a"})
			}
			res, err := Resolve("Q1", "a", bank)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.Key != tt.wantKey {
				t.Errorf("matched %q, want %q", res.Key, tt.wantKey)
			}
			if res.Justification != tt.wantKey {
				t.Errorf("justification %q, want %q", res.Justification, tt.wantKey)
			}
		})
	}
}

func TestResolveInvalidLetter(t *testing.T) {
	bank := newTestBank(t, model.FeedbackEntry{
		Key:            "Q1_x",
		Justifications: justifications("j0", "j1"),
		CorrectChoice:  "a",
	})

	for _, answer := range []string{"1", "ab", "", "  ", "?", "é"} {
		t.Run(answer, func(t *testing.T) {
			_, err := Resolve("Q1", answer, bank)
			if !errors.Is(err, ErrInvalidAnswerLetter) {
				t.Errorf("Resolve(%q) err = %v, want ErrInvalidAnswerLetter", answer, err)
			}
		})
	}
}

func TestLetterIndex(t *testing.T) {
	for i, r := range "abcdefghijklmnopqrstuvwxyz" {
		got, err := LetterIndex(string(r))
		if err != nil {
			t.Fatalf("LetterIndex(%q): %v", r, err)
		}
		if got != i {
			t.Errorf("LetterIndex(%q) = %d, want %d", r, got, i)
		}
	}
	if _, err := LetterIndex("A"); !errors.Is(err, ErrInvalidAnswerLetter) {
		t.Errorf("uppercase letters must be normalized first, got %v", err)
	}
}

func TestBuildReportPreservesOrderAndCount(t *testing.T) {
	bank := newTestBank(t,
		model.FeedbackEntry{Key: "Q1_x", Justifications: justifications("q1a", "q1b"), CorrectChoice: "a"},
		model.FeedbackEntry{Key: "Q2_x", Justifications: justifications("q2a", "q2b"), CorrectChoice: "b"},
	)
	records := []model.StudentRecord{
		{QuestionID: "Q2", Answer: "B"},
		{QuestionID: "Q9", Answer: "a"},
		{QuestionID: "Q1", Answer: "b"},
		{QuestionID: "Q1", Answer: "7"},
	}

	got := BuildReport(records, bank)
	want := []model.ReportEntry{
		{QuestionID: "Q2", Status: model.StatusResolved, BankKey: "Q2_x", RawAnswer: "B",
			StudentLetter: "b", Justification: "q2b", Correct: true},
		{QuestionID: "Q9", Status: model.StatusNotFound, RawAnswer: "a"},
		{QuestionID: "Q1", Status: model.StatusResolved, BankKey: "Q1_x", RawAnswer: "b",
			StudentLetter: "b", Justification: "q1b", CorrectLetter: "a"},
		{QuestionID: "Q1", Status: model.StatusInvalidAnswer, RawAnswer: "7"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildReport mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReportRecordsAlternateKeys(t *testing.T) {
	bank := newTestBank(t,
		model.FeedbackEntry{Key: "Q1_a", Justifications: justifications("a"), CorrectChoice: "a"},
		model.FeedbackEntry{Key: "Q1_b", Justifications: justifications("b"), CorrectChoice: "a"},
	)
	got := BuildReport([]model.StudentRecord{{QuestionID: "Q1", Answer: "a"}}, bank)
	if got[0].BankKey != "Q1_a" {
		t.Errorf("bank key = %q, want Q1_a", got[0].BankKey)
	}
	if diff := cmp.Diff([]string{"Q1_b"}, got[0].AltKeys); diff != "" {
		t.Errorf("AltKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	got := BuildReport(nil, model.NewBank())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}

	r := Build("answers.xlsx", nil, model.NewBank())
	if r.Source != "answers.xlsx" {
		t.Errorf("source = %q", r.Source)
	}
	if r.GeneratedAt.IsZero() {
		t.Error("expected GeneratedAt to be set")
	}
}
