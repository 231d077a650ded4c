// Package web is the HTTP shell: an upload form and a page rendering the run log.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runerror"
	"fjacquet/budget-sync/internal/runner"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Runner executes one run. *runner.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, in models.RunInput) *runner.Result
}

// Options configures a Server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	// UploadDir holds uploads while their run is in progress. Empty uses the system temp dir.
	UploadDir string
}

// Server serves the form and runs uploads through a Runner.
type Server struct {
	http.Server
	opts      Options
	runner    Runner
	templates *template.Template
	logger    logging.Logger
}

// NewServer configures routes and templates.
func NewServer(opts Options, r Runner, logger logging.Logger) (*Server, error) {
	if r == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		opts:      opts,
		runner:    r,
		templates: t,
		logger:    logger.WithField(logging.FieldComponent, logging.ComponentWeb),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withRequestLogging(s.handleIndex))
	mux.HandleFunc("/run", s.withRequestLogging(s.handleRun))
	mux.HandleFunc("/healthz", handleHealth)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, http.StatusOK, "index.html", map[string]interface{}{
		"MaxUploadMB": s.opts.MaxUploadBytes >> 20,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.logger.WithError(err).Warn("Rejected upload")
		msg := "The upload could not be read."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("The upload is larger than %d MB.", s.opts.MaxUploadBytes>>20)
		}
		s.render(w, http.StatusBadRequest, "result.html", resultView{Title: "Invalid request", Message: msg})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := models.RunInput{
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("password"),
		BudgetName: strings.TrimSpace(r.FormValue("budgetName")),
	}

	path, err := s.storeUpload(r)
	if err != nil {
		s.logger.WithError(err).Error("Could not store upload")
		s.render(w, http.StatusInternalServerError, "result.html", resultView{Title: "Error", Message: "The upload could not be stored."})
		return
	}
	if path != "" {
		in.FilePath = path
		in.Temporary = true
	}

	// a disconnecting browser tab must not abort a half-applied budget
	res := s.runner.Run(context.WithoutCancel(r.Context()), in)
	view := newResultView(in.BudgetName, res)
	s.render(w, statusFor(res), "result.html", view)
}

// storeUpload copies the csvFile part to a temp file. A missing part returns "".
func (s *Server) storeUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("csvFile")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		ext = ""
	}
	return fileutils.SaveTemp(file, s.opts.UploadDir, "upload-*"+ext)
}

// statusFor maps a run outcome to an HTTP status. A budget that cannot be
// opened is reported on a regular page.
func statusFor(res *runner.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch {
	case runerror.IsClientError(res.Err):
		return http.StatusBadRequest
	case runerror.KindOf(res.Err) == runerror.KindNavigation:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

type resultView struct {
	Title      string
	Success    bool
	Message    string
	Hint       string
	RunID      string
	ShowReport bool
	Records    int
	Report     models.SyncReport
	Log        []string
}

func newResultView(budget string, res *runner.Result) resultView {
	v := resultView{
		Success: res.Success,
		RunID:   res.RunID,
		Report:  res.Report,
		Log:     res.Log,
	}
	if res.Normalized != nil {
		v.Records = len(res.Normalized.Records)
	}

	switch kind := runerror.KindOf(res.Err); {
	case res.Success:
		v.Title = "Automation complete"
		v.ShowReport = true
	case kind == runerror.KindNavigation:
		v.Title = fmt.Sprintf("Could not open budget %q", budget)
		v.Hint = "The candidate links were saved to debug-budgets.json."
	case runerror.IsClientError(res.Err):
		v.Title = "Invalid request"
		v.Message = res.Err.Error()
	default:
		v.Title = "Error"
		v.Message = res.Err.Error()
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.WithError(err).Error("Failed to render template", logging.F("template", name))
	}
}

// withRequestLogging adds security headers and logs each request with its outcome.
func (s *Server) withRequestLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		fields := []logging.Field{
			logging.F(logging.FieldMethod, r.Method),
			logging.F(logging.FieldPath, r.URL.Path),
			logging.F(logging.FieldStatusCode, rw.statusCode),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()),
			logging.F(logging.FieldRemoteAddr, r.RemoteAddr),
		}
		switch {
		case rw.statusCode >= 500:
			s.logger.Error("Request completed", fields...)
		case rw.statusCode >= 400:
			s.logger.Warn("Request completed", fields...)
		default:
			s.logger.Info("Request completed", fields...)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Run serves until ctx is cancelled, then shuts down gracefully,
// waiting up to shutdownTimeout for a run in progress.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", logging.F("addr", s.Addr))
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Server stopped gracefully")
	return nil
}
