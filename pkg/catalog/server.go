// Package catalog serves skills over HTTP so skill hosts and dashboards can
// browse them, fetch bundled files and read lint results.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
)

// ServerConfig holds the configuration for the catalog server
type ServerConfig struct {
	Host  string
	Port  int
	Roots []string
	Scan  skills.ScanOptions
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if len(c.Roots) == 0 {
		return errors.New("at least one skill root is required")
	}
	return nil
}

// Server serves the skill catalog API.
type Server struct {
	router *mux.Router
	config *ServerConfig
	linter *lint.Linter
	server *http.Server
}

// NewServer creates a catalog server. Skills are rescanned on every request.
func NewServer(config *ServerConfig, linter *lint.Linter) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	if linter == nil {
		return nil, errors.New("linter is required")
	}

	s := &Server{
		router: mux.NewRouter(),
		config: config,
		linter: linter,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name}", s.handleGetSkill).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name}/files/{path:.+}", s.handleGetFile).Methods(http.MethodGet)
	api.HandleFunc("/lint", s.handleLint).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorResponse(r.Context(), w, http.StatusNotFound, "not found", nil)
	})

	s.router.Use(s.loggingMiddleware)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ctx, span := telemetry.Tracer("skillkit.catalog").Start(r.Context(), "catalog.request")
		defer span.End()
		next.ServeHTTP(rw, r.WithContext(ctx))
		telemetry.SetAttributes(ctx,
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
			attribute.Int("http.status_code", rw.statusCode),
		)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SkillSummary is a catalog entry.
type SkillSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Directory   string `json:"directory"`
	License     string `json:"license,omitempty"`
	References  int    `json:"references"`
	EvalFiles   int    `json:"evalFiles"`
	Archived    bool   `json:"archived,omitempty"`
}

// SkillDetail is a skill with its body and bundled files.
type SkillDetail struct {
	SkillSummary
	Frontmatter skills.Frontmatter `json:"frontmatter"`
	Content     string             `json:"content"`
	Links       []skills.Link      `json:"links"`
	Files       []string           `json:"files"`
}

// ListSkillsResponse is the body of GET /api/skills.
type ListSkillsResponse struct {
	Skills []SkillSummary `json:"skills"`
	Total  int            `json:"total"`
}

func summarize(sk *skills.Skill) SkillSummary {
	return SkillSummary{
		Name:        lint.SkillLabel(sk),
		Description: sk.Description,
		Directory:   sk.Directory,
		License:     sk.Frontmatter.License,
		References:  len(sk.References),
		EvalFiles:   len(sk.EvalFiles),
		Archived:    sk.Archived,
	}
}

// loadSkills scans the roots. Skills that fail to load are left out.
func (s *Server) loadSkills(ctx context.Context) ([]*skills.Skill, error) {
	all, err := skills.ScanAll(s.config.Roots, s.config.Scan)
	if err != nil {
		loadErrs := skills.LoadErrors(err)
		if loadErrs == nil {
			return nil, err
		}
		for _, le := range loadErrs {
			logger.G(ctx).WithError(le.Err).WithField("path", le.Path).Debug("skipping skill that failed to load")
		}
	}
	return all, nil
}

// findSkill returns the first skill labelled name, in scan order.
func (s *Server) findSkill(ctx context.Context, name string) (*skills.Skill, error) {
	all, err := s.loadSkills(ctx)
	if err != nil {
		return nil, err
	}
	for _, sk := range all {
		if lint.SkillLabel(sk) == name {
			return sk, nil
		}
	}
	return nil, nil
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := s.loadSkills(ctx)
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to load skills", err)
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	resp := ListSkillsResponse{Skills: []SkillSummary{}}
	for _, sk := range all {
		summary := summarize(sk)
		if query != "" &&
			!strings.Contains(strings.ToLower(summary.Name), query) &&
			!strings.Contains(strings.ToLower(summary.Description), query) {
			continue
		}
		resp.Skills = append(resp.Skills, summary)
	}
	resp.Total = len(resp.Skills)

	s.writeJSONResponse(ctx, w, http.StatusOK, resp)
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	sk, err := s.findSkill(ctx, name)
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to load skills", err)
		return
	}
	if sk == nil {
		s.writeErrorResponse(ctx, w, http.StatusNotFound, fmt.Sprintf("skill %q not found", name), nil)
		return
	}

	files := []string{skills.SkillFileName}
	files = append(files, sk.References...)
	files = append(files, sk.EvalFiles...)

	links := sk.Links
	if links == nil {
		links = []skills.Link{}
	}

	s.writeJSONResponse(ctx, w, http.StatusOK, SkillDetail{
		SkillSummary: summarize(sk),
		Frontmatter:  sk.Frontmatter,
		Content:      sk.Content,
		Links:        links,
		Files:        files,
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	sk, err := s.findSkill(ctx, vars["name"])
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to load skills", err)
		return
	}
	if sk == nil {
		s.writeErrorResponse(ctx, w, http.StatusNotFound, fmt.Sprintf("skill %q not found", vars["name"]), nil)
		return
	}

	full, err := skills.ResolveInside(sk.Directory, vars["path"])
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeErrorResponse(ctx, w, http.StatusNotFound, fmt.Sprintf("file %q not found", vars["path"]), nil)
			return
		}
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to open file", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to stat file", err)
		return
	}
	if info.IsDir() {
		s.writeErrorResponse(ctx, w, http.StatusBadRequest, fmt.Sprintf("%q is a directory", vars["path"]), nil)
		return
	}

	if strings.EqualFold(filepath.Ext(full), ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := s.linter.LintPaths(ctx, s.config.Roots, s.config.Scan)
	if err != nil {
		s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to lint skills", err)
		return
	}

	if name := r.URL.Query().Get("skill"); name != "" {
		report.Findings = report.FindingsFor(name)
		if report.Findings == nil {
			report.Findings = []lint.Finding{}
		}
		report.Recount()
	}

	s.writeJSONResponse(ctx, w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSONResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) writeErrorResponse(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logger.G(ctx).WithError(err).Error(message)
	}
	s.writeJSONResponse(ctx, w, status, map[string]any{
		"error":   message,
		"status":  status,
		"success": false,
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	presenter.Info(fmt.Sprintf("Serving skill catalog on http://%s", address))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "catalog server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
