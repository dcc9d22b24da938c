package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/quizfeedback/internal/handler"
	appI18n "github.com/pavelanni/quizfeedback/internal/i18n"
	"github.com/pavelanni/quizfeedback/internal/model"
	"github.com/pavelanni/quizfeedback/internal/pdf"
	"github.com/pavelanni/quizfeedback/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizfeedback",
		Short: "Per-question feedback reports from quiz answers and a justification bank",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd(), exportCmd(), pruneCmd(), hashPasswordCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizfeedback --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the upload web UI",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizfeedback.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default UI and report language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /feedback)")
	f.String("password-hash", "", "bcrypt hash required for HTTP basic auth (see hash-password)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	f.Int64("max-upload", 32<<20, "Maximum upload size in bytes")
	f.Bool("source-banner", false, "Show the answers file name in report headings by default")
	f.Duration("retention", 0, "Delete stored reports older than this at startup (0 keeps all)")
	f.Bool("no-pdf", false, "Disable PDF downloads")
	f.String("chrome-bin", "", "Chrome/Chromium binary used for PDF output")
	f.String("chrome-url", "", "DevTools URL of a running browser used for PDF output")
	f.Duration("pdf-delay", 0, "Extra wait after math typesetting before printing")
	f.Bool("landscape", false, "Print PDF pages in landscape orientation")
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored report as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizfeedback.db", "SQLite database path")
	f.String("id", "", "Report ID (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func pruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored reports older than a given age",
		RunE:  runPrune,
	}
	f := cmd.Flags()
	f.String("db", "quizfeedback.db", "SQLite database path")
	f.Duration("older-than", 30*24*time.Hour, "Age of reports to delete")
	addLogFlags(cmd)
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for --password-hash (reads the password from stdin)",
		RunE:  runHashPassword,
	}
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZFEEDBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizfeedback")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizfeedback")
	v.AddConfigPath("/etc/quizfeedback")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// pdfOptions reads the browser flags shared by serve and report.
func pdfOptions(v *viper.Viper) pdf.Options {
	return pdf.Options{
		ChromeBin:   v.GetString("chrome-bin"),
		ControlURL:  v.GetString("chrome-url"),
		RenderDelay: v.GetDuration("pdf-delay"),
		Landscape:   v.GetBool("landscape"),
	}
}

// normalizeBasePath returns "" or a prefix with a leading and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if retention := v.GetDuration("retention"); retention > 0 {
		n, err := db.PruneReports(time.Now().Add(-retention))
		if err != nil {
			return fmt.Errorf("prune reports: %w", err)
		}
		if n > 0 {
			slog.Info("pruned old reports", "count", n, "retention", retention)
		}
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.ServerConfig{
		BasePath:     basePath,
		Lang:         lang,
		PasswordHash: v.GetString("password-hash"),
		CORSOrigins:  v.GetStringSlice("cors-origins"),
		MaxUpload:    v.GetInt64("max-upload"),
		SourceBanner: v.GetBool("source-banner"),
	}

	var converter handler.PDFConverter
	if !v.GetBool("no-pdf") {
		converter = pdf.New(pdfOptions(v))
	}

	h, err := handler.New(db, converter, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: cfg.PasswordHash != "",
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"base_path", basePath,
		"auth", cfg.PasswordHash != "",
		"pdf", converter != nil,
		"cors_origins", cfg.CORSOrigins,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportReport(v.GetString("id"))
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	// Ensure trailing newline.
	data = append(data, '\n')
	return writeOutput(v.GetString("output"), data)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	age := v.GetDuration("older-than")
	if age <= 0 {
		return errors.New("--older-than must be positive")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	n, err := db.PruneReports(time.Now().Add(-age))
	if err != nil {
		return fmt.Errorf("prune reports: %w", err)
	}
	slog.Info("pruned reports", "count", n, "older_than", age)
	return nil
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)

	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		return errors.New("no password given on stdin")
	}
	password := strings.TrimRight(sc.Text(), "\r")
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := handler.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}

// writeOutput writes data to path, or to stdout for "" and "-".
func writeOutput(path string, data []byte) error {
	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
