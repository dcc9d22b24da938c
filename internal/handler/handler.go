package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/quizfeedback/internal/feedback"
	"github.com/pavelanni/quizfeedback/internal/handler/views"
	appI18n "github.com/pavelanni/quizfeedback/internal/i18n"
	"github.com/pavelanni/quizfeedback/internal/ingest"
	"github.com/pavelanni/quizfeedback/internal/model"
	"github.com/pavelanni/quizfeedback/internal/render"
	"github.com/pavelanni/quizfeedback/internal/store"
)

const (
	defaultMaxUpload = 32 << 20
	recentReports    = 20
)

// PDFConverter turns a complete HTML page into a PDF document.
type PDFConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	pdf    PDFConverter
	config model.ServerConfig
}

// New creates a new Handler. A nil converter disables PDF downloads.
func New(s *store.Store, pdf PDFConverter, cfg model.ServerConfig) (*Handler, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = defaultMaxUpload
	}
	return &Handler{store: s, pdf: pdf, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		if h.config.PasswordHash != "" {
			r.Use(h.basicAuth)
		}
		r.Get("/", h.handleIndex)
		r.Post("/reports", h.handleCreateReport)
		r.Get("/reports/{reportID}", h.handleReportPage)
		r.Get("/reports/{reportID}/download/{format}", h.handleDownload)
		r.Post("/reports/{reportID}/delete", h.handleDelete)
	})
}

// BasePathMiddleware makes the configured URL prefix available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, "")
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	reports, err := h.store.ListReports(recentReports)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	total, err := h.store.ReportCount()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.IndexPage(reports, total, errMsg, h.config.SourceBanner).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.config.MaxUpload {
		h.rejectTooLarge(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUpload)
	if err := r.ParseMultipartForm(h.config.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rejectTooLarge(w, r)
			return
		}
		h.renderIndex(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "BothFilesRequired"))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	answersFile, answersHdr, err := r.FormFile("answers")
	if err != nil {
		h.renderIndex(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "BothFilesRequired"))
		return
	}
	defer answersFile.Close()
	bankFile, bankHdr, err := r.FormFile("bank")
	if err != nil {
		h.renderIndex(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "BothFilesRequired"))
		return
	}
	defer bankFile.Close()

	report, err := h.buildReport(answersFile, answersHdr, bankFile, bankHdr)
	if err != nil {
		if errors.Is(err, ingest.ErrIngestion) {
			slog.Warn("upload rejected", "answers", answersHdr.Filename, "bank", bankHdr.Filename, "error", err)
			h.renderIndex(w, r, http.StatusBadRequest, err.Error())
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id, err := h.store.SaveReport(report)
	if err != nil {
		slog.Error("failed to save report", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s := report.Summary()
	slog.Info("report generated", "id", id, "source", report.Source,
		"total", s.Total, "correct", s.Correct, "not_found", s.NotFound, "invalid", s.Invalid)

	target := h.path("/reports/" + id)
	if r.FormValue("banner") != "" {
		target += "?banner=1"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) rejectTooLarge(w http.ResponseWriter, r *http.Request) {
	slog.Warn("upload too large", "content_length", r.ContentLength, "limit", h.config.MaxUpload)
	h.renderIndex(w, r, http.StatusRequestEntityTooLarge,
		appI18n.Td(r.Context(), "UploadTooLarge", map[string]any{"Limit": byteSize(h.config.MaxUpload)}))
}

// byteSize formats n with the largest binary unit that divides it evenly.
func byteSize(n int64) string {
	for _, u := range []struct {
		shift uint
		name  string
	}{{30, "GiB"}, {20, "MiB"}, {10, "KiB"}} {
		if n >= 1<<u.shift && n%(1<<u.shift) == 0 {
			return fmt.Sprintf("%d %s", n>>u.shift, u.name)
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

func (h *Handler) buildReport(af multipart.File, ah *multipart.FileHeader, bf multipart.File, bh *multipart.FileHeader) (model.Report, error) {
	records, err := ingest.ReadAnswers(ah.Filename, af, ingest.AnswersOptions{})
	if err != nil {
		return model.Report{}, err
	}
	bank, err := ingest.ReadBank(bh.Filename, bf)
	if err != nil {
		return model.Report{}, err
	}
	report := feedback.Build(filepath.Base(ah.Filename), records, bank)
	report.Lang = h.config.Lang
	return report, nil
}

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request) (model.Report, bool) {
	report, err := h.store.GetReport(chi.URLParam(r, "reportID"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return report, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return report, false
	}
	return report, true
}

// wantBanner reports whether the source banner is requested for this view.
func (h *Handler) wantBanner(r *http.Request) bool {
	switch r.URL.Query().Get("banner") {
	case "1", "true", "on":
		return true
	case "0", "false", "off":
		return false
	}
	return h.config.SourceBanner
}

func (h *Handler) markdown(ctx context.Context, report model.Report, banner bool) string {
	return render.Markdown(report, render.MarkdownOptions{
		Banner:       banner,
		ShowQuestion: true,
		Labels:       render.LabelsFromContext(ctx),
	})
}

func (h *Handler) handleReportPage(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	banner := h.wantBanner(r)
	body, err := render.MarkdownToHTML(h.markdown(r.Context(), report, banner))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	query := ""
	if banner {
		query = "?banner=1"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ReportPage(report, body, query, h.pdf != nil).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	switch format {
	case "md", "txt", "pdf", "json":
	default:
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}
	if format == "pdf" && h.pdf == nil {
		http.Error(w, "PDF export is not available", http.StatusServiceUnavailable)
		return
	}

	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "md":
		data = []byte(h.markdown(r.Context(), report, h.wantBanner(r)))
		contentType = "text/markdown; charset=utf-8"
	case "txt":
		data = []byte(render.Plain(report))
		contentType = "text/plain; charset=utf-8"
	case "json":
		var err error
		data, err = json.MarshalIndent(report.Export(), "", "  ")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data = append(data, '\n')
		contentType = "application/json"
	case "pdf":
		page, err := render.HTMLDocument(r.Context(), h.markdown(r.Context(), report, h.wantBanner(r)), render.DocumentOptions{
			Title: report.Source,
			Lang:  report.Lang,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data, err = h.pdf.Convert(r.Context(), page)
		if err != nil {
			slog.Error("PDF conversion failed", "id", report.ID, "error", err)
			http.Error(w, "PDF conversion failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		contentType = "application/pdf"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(report.Source, format)))
	_, _ = w.Write(data)
}

// downloadName derives the attachment name from the answers file name.
func downloadName(source, format string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "feedback_output"
	} else {
		base += "_feedback"
	}
	return base + "." + format
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")
	if err := h.store.DeleteReport(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to delete report", "id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("report deleted", "id", id)
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}
