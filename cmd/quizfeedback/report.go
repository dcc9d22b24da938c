package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/quizfeedback/internal/feedback"
	appI18n "github.com/pavelanni/quizfeedback/internal/i18n"
	"github.com/pavelanni/quizfeedback/internal/ingest"
	"github.com/pavelanni/quizfeedback/internal/model"
	"github.com/pavelanni/quizfeedback/internal/pdf"
	"github.com/pavelanni/quizfeedback/internal/render"
)

var reportFormats = []string{"markdown", "text", "html", "pdf", "terminal", "json"}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a feedback report from an answers sheet and a justification bank",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("answers", "", "Student answers spreadsheet (.xlsx or .csv) (required)")
	f.String("bank", "", "Justification bank (.json or .yaml) (required)")
	f.String("sheet", "", "Worksheet name in the answers workbook (default: first sheet)")
	f.StringP("format", "f", "markdown", "Output format ("+strings.Join(reportFormats, ", ")+")")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.Bool("source-banner", false, "Show the answers file name in report headings")
	f.Bool("show-question", false, "Include the question text in Markdown, HTML and PDF output")
	f.StringP("lang", "l", "en", "Report label language (en, ru)")
	f.Int("width", 100, "Word wrap width for terminal output")
	f.String("chrome-bin", "", "Chrome/Chromium binary used for PDF output")
	f.String("chrome-url", "", "DevTools URL of a running browser used for PDF output")
	f.Duration("pdf-delay", 0, "Extra wait after math typesetting before printing")
	f.Bool("landscape", false, "Print PDF pages in landscape orientation")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("answers")
	_ = cmd.MarkFlagRequired("bank")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	format := strings.ToLower(v.GetString("format"))
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(reportFormats, ", "))
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLanguage(cmd.Context(), lang)

	answersPath := v.GetString("answers")
	records, err := ingest.OpenAnswers(answersPath, ingest.AnswersOptions{Sheet: v.GetString("sheet")})
	if err != nil {
		return err
	}
	bank, err := ingest.OpenBank(v.GetString("bank"))
	if err != nil {
		return err
	}

	report := feedback.Build(filepath.Base(answersPath), records, bank)
	report.Lang = lang
	s := report.Summary()
	slog.Info("report built", "source", report.Source, "bank_entries", bank.Len(),
		"total", s.Total, "correct", s.Correct, "not_found", s.NotFound, "invalid", s.Invalid)

	data, err := renderReport(ctx, report, format, reportSettings{
		banner:       v.GetBool("source-banner"),
		showQuestion: v.GetBool("show-question"),
		width:        v.GetInt("width"),
		pdf:          pdfOptions(v),
	})
	if err != nil {
		return err
	}
	return writeOutput(v.GetString("output"), data)
}

func validFormat(format string) bool {
	for _, f := range reportFormats {
		if f == format {
			return true
		}
	}
	return false
}

type reportSettings struct {
	banner       bool
	showQuestion bool
	width        int
	pdf          pdf.Options
}

func renderReport(ctx context.Context, report model.Report, format string, rs reportSettings) ([]byte, error) {
	md := func() string {
		return render.Markdown(report, render.MarkdownOptions{
			Banner:       rs.banner,
			ShowQuestion: rs.showQuestion,
			Labels:       render.LabelsFromContext(ctx),
		})
	}
	page := func() ([]byte, error) {
		return render.HTMLDocument(ctx, md(), render.DocumentOptions{Title: report.Source, Lang: report.Lang})
	}

	switch format {
	case "markdown":
		return []byte(md()), nil
	case "text":
		return []byte(render.Plain(report)), nil
	case "html":
		return page()
	case "terminal":
		out, err := render.Terminal(md(), rs.width)
		if err != nil {
			return nil, fmt.Errorf("render terminal output: %w", err)
		}
		return []byte(out), nil
	case "json":
		data, err := json.MarshalIndent(report.Export(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	case "pdf":
		html, err := page()
		if err != nil {
			return nil, err
		}
		out, err := pdf.New(rs.pdf).Convert(ctx, html)
		if err != nil {
			return nil, fmt.Errorf("convert to PDF: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
