package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/quizfeedback/internal/model"
	"github.com/pavelanni/quizfeedback/internal/pdf"
	"github.com/pavelanni/quizfeedback/internal/render"
)

const testBank = `Q1_area:
  Q_text: "Area of a circle?"
  Q_justifications:
    - [a, "No, that is the circumference."]
    - [b, "Yes, $\\pi r^2$."]
  correct_choice_ID: b
Q2_sum:
  Q_text: "1+1?"
  Q_justifications:
    - [a, "Correct."]
    - [b, "Off by one."]
  correct_choice_ID: a
`

func writeInputs(t *testing.T) (answers, bank string) {
	t.Helper()
	dir := t.TempDir()
	answers = filepath.Join(dir, "week3.csv")
	bank = filepath.Join(dir, "bank.yaml")
	if err := os.WriteFile(answers, []byte("Question,Answer\nQ1,a\nQ2,A\nQ7,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bank, []byte(testBank), 0o644); err != nil {
		t.Fatal(err)
	}
	return answers, bank
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReportText(t *testing.T) {
	answers, bank := writeInputs(t)
	out := filepath.Join(t.TempDir(), "feedback_output.txt")

	if _, err := runCLI(t, "", "report", "--answers", answers, "--bank", bank, "--format", "text", "--output", out); err != nil {
		t.Fatalf("report: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "Q1: student answer: A\n" +
		"feedback: No, that is the circumference.\n" +
		"correct answer is: B\n" +
		"\n" +
		"Q2: student answer: A\n" +
		"feedback: Correct.\n" +
		"\n" +
		"Q7: No feedback found for question Q7\n"
	if string(data) != want {
		t.Errorf("unexpected text output:\n%s\nwant:\n%s", data, want)
	}

	blocks, err := render.ParsePlain(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	if len(blocks) != 3 || blocks[0].CorrectLetter != "B" || !blocks[1].Correct {
		t.Errorf("unexpected parsed blocks %+v", blocks)
	}
}

func TestReportMarkdownBanner(t *testing.T) {
	answers, bank := writeInputs(t)
	out := filepath.Join(t.TempDir(), "feedback_output.md")

	if _, err := runCLI(t, "", "report", "--answers", answers, "--bank", bank,
		"--source-banner", "--lang", "ru", "--output", out); err != nil {
		t.Fatalf("report: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	if !strings.Contains(md, "### week3.csv | Q1\n") {
		t.Errorf("expected banner heading, got:\n%s", md)
	}
	if strings.Contains(md, "Student Answer") {
		t.Errorf("expected Russian labels, got:\n%s", md)
	}
}

func TestReportJSON(t *testing.T) {
	answers, bank := writeInputs(t)
	out := filepath.Join(t.TempDir(), "report.json")

	if _, err := runCLI(t, "", "report", "--answers", answers, "--bank", bank, "-f", "json", "-o", out); err != nil {
		t.Fatalf("report: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var exp model.ReportExport
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if exp.Source != "week3.csv" || exp.Summary != (model.Summary{Total: 3, Correct: 1, Incorrect: 1, NotFound: 1}) {
		t.Errorf("unexpected export %+v", exp)
	}
}

func TestReportErrors(t *testing.T) {
	answers, bank := writeInputs(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"report", "--answers", answers, "--bank", bank, "--format", "docx", "-o", os.DevNull}},
		{"missing bank file", []string{"report", "--answers", answers, "--bank", bank + ".missing", "-o", os.DevNull}},
		{"missing flag", []string{"report", "--answers", answers}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, "", tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	out, err := runCLI(t, "s3cret\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}

	if _, err := runCLI(t, "", "hash-password"); err == nil {
		t.Error("expected error for empty stdin")
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"/", ""},
		{"feedback", "/feedback"},
		{"/feedback/", "/feedback"},
		{" /a/b ", "/a/b"},
	}
	for _, tt := range tests {
		if got := normalizeBasePath(tt.in); got != tt.want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPDFOptionsFromFlags(t *testing.T) {
	for _, cmd := range []*cobra.Command{serveCmd(), reportCmd()} {
		t.Run(cmd.Name(), func(t *testing.T) {
			if err := cmd.ParseFlags([]string{"--landscape", "--chrome-url", "ws://127.0.0.1:9222", "--pdf-delay", "2s"}); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			got := pdfOptions(viperForCmd(cmd))
			want := pdf.Options{ControlURL: "ws://127.0.0.1:9222", RenderDelay: 2 * time.Second, Landscape: true}
			if got != want {
				t.Errorf("pdfOptions = %+v, want %+v", got, want)
			}
		})
	}
}
