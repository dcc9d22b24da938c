package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pavelanni/quizfeedback/internal/feedback"
	"github.com/pavelanni/quizfeedback/internal/model"
)

func sampleReport(t *testing.T) model.Report {
	t.Helper()
	bank := model.NewBank()
	bank.Add(model.FeedbackEntry{
		Key:          "Q1_Eq_q_1",
		QuestionText: "What is $M = m_1 + m_2$?",
		Justifications: []model.Justification{
			{Option: "1", Explanation: "Right, $M$ adds up."},
			{Option: "2", Explanation: "No, that doubles it."},
		},
		CorrectChoice: "a",
	})
	bank.Add(model.FeedbackEntry{
		Key:            "Q2_x",
		Justifications: []model.Justification{{Option: "1", Explanation: "q2a"}},
		CorrectChoice:  "a",
	})
	records := []model.StudentRecord{
		{QuestionID: "Q1", Answer: "a"},
		{QuestionID: "Q2", Answer: "b"},
		{QuestionID: "Q9", Answer: "c"},
		{QuestionID: "Q1", Answer: "ab"},
	}
	return model.Report{Source: "class7.xlsx", Entries: feedback.BuildReport(records, bank)}
}

func TestMarkdownPlainLayout(t *testing.T) {
	got := Markdown(sampleReport(t), MarkdownOptions{})
	want := strings.Join([]string{
		"# Feedback Report\n",
		"## Q1",
		"- **Student Answer:** A",
		"- **Feedback:** Right, $M$ adds up.",
		"",
		"## Q2",
		"- **Student Answer:** B",
		"- **Feedback:** " + feedback.NoJustification,
		"- **Correct Answer:** A",
		"",
		"## Q9",
		"**No feedback found for question Q9.**\n",
		"## Q1",
		`**Invalid answer for question Q1: "ab".**` + "\n",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdownBanner(t *testing.T) {
	got := Markdown(sampleReport(t), MarkdownOptions{Banner: true, ShowQuestion: true})
	for _, want := range []string{
		"# Feedback Report for class7.xlsx\n",
		"### class7.xlsx | Q1\n",
		"### class7.xlsx | Q9\n",
		"- **Question:** What is $M = m_1 + m_2$?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("banner markdown missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "## Q1\n-") {
		t.Error("banner layout should not use level-two question headings")
	}
}

func TestMarkdownCustomLabels(t *testing.T) {
	l := DefaultLabels
	l.StudentAnswer = "Ответ студента"
	got := Markdown(sampleReport(t), MarkdownOptions{Labels: l})
	if !strings.Contains(got, "- **Ответ студента:** A") {
		t.Errorf("custom label not used:\n%s", got)
	}
}

func TestPlainLayout(t *testing.T) {
	got := Plain(sampleReport(t))
	want := strings.Join([]string{
		"Q1: student answer: A",
		"feedback: Right, $M$ adds up.",
		"",
		"Q2: student answer: B",
		"feedback: " + feedback.NoJustification,
		"correct answer is: A",
		"",
		"Q9: No feedback found for question Q9",
		"",
		"Q1: invalid answer: ab",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plain mismatch (-want +got):\n%s", diff)
	}
}

func TestPlainRoundTrip(t *testing.T) {
	r := sampleReport(t)
	blocks, err := ParsePlain(strings.NewReader(Plain(r)))
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	if len(blocks) != len(r.Entries) {
		t.Fatalf("expected %d blocks, got %d", len(r.Entries), len(blocks))
	}
	for i, e := range r.Entries {
		b := blocks[i]
		if b.QuestionID != e.QuestionID || b.Status != e.Status {
			t.Errorf("block %d: got (%q, %s), want (%q, %s)", i, b.QuestionID, b.Status, e.QuestionID, e.Status)
		}
		if e.Status != model.StatusResolved {
			continue
		}
		if b.Letter != e.DisplayLetter() || b.Correct != e.Correct {
			t.Errorf("block %d: got (%q, %v), want (%q, %v)", i, b.Letter, b.Correct, e.DisplayLetter(), e.Correct)
		}
		if b.CorrectLetter != e.DisplayCorrectLetter() {
			t.Errorf("block %d: correct letter %q, want %q", i, b.CorrectLetter, e.DisplayCorrectLetter())
		}
	}
}

func TestPlainRoundTripMultilineFeedback(t *testing.T) {
	r := model.Report{Entries: []model.ReportEntry{
		{QuestionID: "Q1", Status: model.StatusResolved, StudentLetter: "c", Justification: "line one\n\nline three", CorrectLetter: "a"},
		{QuestionID: "Q2", Status: model.StatusResolved, StudentLetter: "d", Justification: "ok", Correct: true},
	}}
	blocks, err := ParsePlain(strings.NewReader(Plain(r)))
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	want := []PlainBlock{
		{QuestionID: "Q1", Status: model.StatusResolved, Letter: "C", CorrectLetter: "A"},
		{QuestionID: "Q2", Status: model.StatusResolved, Letter: "D", Correct: true},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestPlainIndentsFeedbackContinuation(t *testing.T) {
	r := model.Report{Entries: []model.ReportEntry{
		{QuestionID: "Q1", Status: model.StatusResolved, StudentLetter: "b",
			Justification: "see below\ncorrect answer is: B\nQ2: student answer: C", Correct: true},
	}}
	got := Plain(r)
	want := "Q1: student answer: B\n" +
		"feedback: see below\n" +
		"  correct answer is: B\n" +
		"  Q2: student answer: C\n"
	if got != want {
		t.Fatalf("Plain mismatch:\n%q\nwant:\n%q", got, want)
	}

	blocks, err := ParsePlain(strings.NewReader(got))
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	wantBlocks := []PlainBlock{{QuestionID: "Q1", Status: model.StatusResolved, Letter: "B", Correct: true}}
	if diff := cmp.Diff(wantBlocks, blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePlainRejectsMalformedBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"orphan correct answer", "correct answer is: A\n"},
		{"orphan feedback", "feedback: x\n"},
		{"correct answer before feedback", "Q1: student answer: B\ncorrect answer is: A\nfeedback: x\n"},
		{"two correct answer lines", "Q1: student answer: B\nfeedback: x\ncorrect answer is: A\ncorrect answer is: C\n"},
		{"two feedback lines", "Q1: student answer: B\nfeedback: x\nfeedback: y\n"},
		{"unindented continuation", "Q1: student answer: B\nfeedback: x\nmore text\n"},
		{"continuation on not found block", "Q9: No feedback found for question Q9\n  extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlain(strings.NewReader(tt.input)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMarkdownToHTMLKeepsMath(t *testing.T) {
	got, err := MarkdownToHTML("- **Feedback:** take $a_1 * b_2 * c$ and <b>x</b>")
	if err != nil {
		t.Fatalf("MarkdownToHTML: %v", err)
	}
	if !strings.Contains(got, "$a_1 * b_2 * c$") {
		t.Errorf("math span altered: %s", got)
	}
	if !strings.Contains(got, "<strong>Feedback:</strong>") {
		t.Errorf("emphasis not rendered: %s", got)
	}
	if strings.Contains(got, "<b>x</b>") {
		t.Errorf("raw HTML should be dropped: %s", got)
	}
}

func TestHTMLDocument(t *testing.T) {
	page, err := HTMLDocument(context.Background(), "# Feedback Report\n\n$x < y$", DocumentOptions{Title: "Report", Lang: "ru"})
	if err != nil {
		t.Fatalf("HTMLDocument: %v", err)
	}
	s := string(page)
	for _, want := range []string{
		`<html lang="ru">`,
		"<title>Report</title>",
		"text/x-mathjax-config",
		"mathjax/2.7.5",
		"<h1>Feedback Report</h1>",
		"$x &lt; y$",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestDocumentDefaultsAndEscaping(t *testing.T) {
	var buf bytes.Buffer
	if err := Document("<p>body</p>", DocumentOptions{Title: "a<b>.csv"}).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := buf.String()
	for _, want := range []string{
		`<html lang="en">`,
		"<title>a&lt;b&gt;.csv</title>",
		`src="` + DefaultMathJaxURL + `"`,
		"@page { size: A4; margin: 2cm; }",
		"<body><p>body</p></body>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("document missing %q in:\n%s", want, s)
		}
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(Markdown(sampleReport(t), MarkdownOptions{}), 60)
	if err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	if !strings.Contains(out, "Feedback Report") {
		t.Errorf("terminal output missing title:\n%s", out)
	}
}
