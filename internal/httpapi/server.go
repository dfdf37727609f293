package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
	"github.com/joelkehle/glp1-roadmap/internal/export"
	"github.com/joelkehle/glp1-roadmap/internal/observability"
	"github.com/joelkehle/glp1-roadmap/internal/platform/logger"
	"github.com/joelkehle/glp1-roadmap/internal/report"
	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Engine      *roadmap.Engine
	PDFRenderer report.PDFRenderer
	// StyleCSS is inlined into HTML reports.
	StyleCSS string
	// WebDir, when set, is served at "/".
	WebDir string
	Logger *logger.Logger
}

type Server struct {
	engine      *roadmap.Engine
	pdfRenderer report.PDFRenderer
	styleCSS    string
	webDir      string
	log         *logger.Logger
}

func NewServer(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		engine:      cfg.Engine,
		pdfRenderer: cfg.PDFRenderer,
		styleCSS:    cfg.StyleCSS,
		webDir:      cfg.WebDir,
		log:         log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analysis", s.handleAnalysis)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/export", s.handleExport)
	mux.HandleFunc("/v1/drugs", s.handleListDrugs)
	mux.HandleFunc("/v1/drugs/", s.handleGetDrug)
	mux.HandleFunc("/v1/health", s.handleHealth)
	if s.webDir != "" {
		mux.HandleFunc("/", s.handleRoot)
	}
	return withRecover(log, withRequestID(withAccessLog(log, mux)))
}

// writeJSON encodes before writing the status line so an encoding failure
// still reaches the client as an error envelope.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":    roadmap.CodeInternal,
				"message": "failed to encode response",
			},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}

// writeEngineError maps typed engine errors onto the error envelope.
func writeEngineError(w http.ResponseWriter, err error) {
	code := roadmap.CodeOf(err)
	status := roadmap.StatusForCode(code)
	if status < 400 {
		status = http.StatusInternalServerError
		code = roadmap.CodeInternal
	}
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
		},
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// readInput flattens query parameters and, for POST, a JSON object or form
// body into the string map the engine parses. Body values win over query
// values.
func readInput(r *http.Request) (map[string]string, error) {
	in := map[string]string{}
	for k, v := range r.URL.Query() {
		if k == "format" || len(v) == 0 {
			continue
		}
		in[k] = v[0]
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return in, nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, &roadmap.ValidationError{Field: "body", Message: err.Error()}
	}
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 {
		return in, nil
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		r.Body = io.NopCloser(bytes.NewReader(blob))
		if err := r.ParseForm(); err != nil {
			return nil, &roadmap.ValidationError{Field: "body", Message: err.Error()}
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				in[k] = v[0]
			}
		}
		return in, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, &roadmap.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
		case string:
			in[k] = t
		case float64:
			in[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			in[k] = strconv.FormatBool(t)
		default:
			return nil, &roadmap.ValidationError{Field: k, Message: "must be a string, number or boolean"}
		}
	}
	return in, nil
}

// analyze runs one analysis inside a span.
func (s *Server) analyze(ctx context.Context, in map[string]string) (roadmap.Result, error) {
	_, span := observability.Tracer().Start(ctx, "roadmap.analyze")
	defer span.End()
	res, err := s.engine.Analyze(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, roadmap.CodeOf(err))
		return res, err
	}
	span.SetAttributes(
		attribute.String("roadmap.drug", string(res.DrugType)),
		attribute.String("roadmap.stage", string(res.Stage)),
		attribute.String("roadmap.mode", string(res.Mode)),
		attribute.String("roadmap.band", string(res.Band)),
		attribute.Int("roadmap.weeks", len(res.Weeks)),
	)
	if res.Mode == roadmap.ModeDegraded {
		s.log.Warn("analysis degraded", "request_id", requestIDFrom(ctx), "analysis_id", res.AnalysisID, "issues", res.Issues)
	}
	return res, nil
}

func (s *Server) analyzeRequest(w http.ResponseWriter, r *http.Request) (roadmap.Result, bool) {
	in, err := readInput(r)
	if err != nil {
		writeEngineError(w, err)
		return roadmap.Result{}, false
	}
	res, err := s.analyze(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return roadmap.Result{}, false
	}
	return res, true
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	res, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, 200, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "md"
	}
	if format != "md" && format != "html" && format != "pdf" {
		writeError(w, 400, roadmap.CodeValidation, fmt.Sprintf("unsupported format %q (expected md|html|pdf)", format))
		return
	}
	if format == "pdf" && s.pdfRenderer == nil {
		writeError(w, 503, roadmap.CodeInternal, "pdf renderer unavailable")
		return
	}
	res, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}

	switch format {
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(report.BuildMarkdown(res)))
	case "html":
		doc, err := report.BuildHTML(res, s.styleCSS)
		if err != nil {
			s.log.Error("render report html failed", "analysis_id", res.AnalysisID, "error", err)
			writeError(w, 500, roadmap.CodeInternal, "failed to render html")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(doc))
	case "pdf":
		pdf, err := s.pdfRenderer.Render(r.Context(), res)
		if err != nil {
			s.log.Error("render report pdf failed", "analysis_id", res.AnalysisID, "error", err)
			writeError(w, 500, roadmap.CodeInternal, "failed to render pdf")
			return
		}
		filename := fmt.Sprintf("roadmap-%s-%s.pdf", sanitizeFilename(string(res.DrugType)), sanitizeFilename(res.AnalysisID))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(200)
		_, _ = w.Write(pdf)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, 400, roadmap.CodeValidation, err.Error())
		return
	}
	res, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, res); err != nil {
		s.log.Error("export failed", "analysis_id", res.AnalysisID, "format", format, "error", err)
		writeError(w, 500, roadmap.CodeInternal, "failed to export series")
		return
	}
	filename := fmt.Sprintf("roadmap-%s.%s", sanitizeFilename(res.AnalysisID), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(200)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListDrugs(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"drugs": s.engine.Registry().Profiles()})
}

func (s *Server) handleGetDrug(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/drugs/"), "/")
	if name == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	profile, err := s.engine.Registry().LookupName(name)
	if err != nil {
		var ue *drugs.UnknownDrugError
		if errors.As(err, &ue) {
			writeError(w, 404, roadmap.CodeUnknownDrug, err.Error())
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, 200, profile)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":    true,
		"drugs": s.engine.Registry().Types(),
		"pdf":   s.pdfRenderer != nil,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Prevent stale frontend bundles from breaking the UI after deploys.
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Path == "/" || r.URL.Path == "/index.html" {
		http.ServeFile(w, r, filepath.Join(s.webDir, "index.html"))
		return
	}
	clean := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	if _, err := fs.Stat(os.DirFS(s.webDir), clean); err == nil {
		http.ServeFile(w, r, filepath.Join(s.webDir, clean))
		return
	}
	http.NotFound(w, r)
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "report"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, v)
}
