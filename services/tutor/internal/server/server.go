package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tutorcore/internal/identity"
	"tutorcore/internal/util"
	"tutorcore/pkg/result"
	"tutorcore/services/tutor/internal/app"
)

const (
	defaultMaxRequestBytes = 12 << 20
	healthTimeout          = 2 * time.Second
)

// TokenVerifier resolves a bearer token to its caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.Caller, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App             *app.App
	TokenVerifier   TokenVerifier
	TrustedProxies  *util.TrustedProxies
	MaxRequestBytes int64
	// Pinger is checked by /healthz when set.
	Pinger Pinger
}

// Server exposes the verification and file endpoints.
type Server struct {
	app             *app.App
	tokenVerifier   TokenVerifier
	trustedProxies  *util.TrustedProxies
	pinger          Pinger
	mux             *http.ServeMux
	maxRequestBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.TokenVerifier == nil {
		return nil, errors.New("token verifier required")
	}
	maxRequestBytes := cfg.MaxRequestBytes
	if maxRequestBytes <= 0 {
		maxRequestBytes = defaultMaxRequestBytes
	}
	s := &Server{
		app:             cfg.App,
		tokenVerifier:   cfg.TokenVerifier,
		trustedProxies:  cfg.TrustedProxies,
		pinger:          cfg.Pinger,
		mux:             http.NewServeMux(),
		maxRequestBytes: maxRequestBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("tutor", s.trustedProxies, util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/teacher/verification", s.withCaller(s.handleVerification))
	s.mux.Handle("/files", s.withCaller(s.handleFiles))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			util.LoggerFromContext(r.Context()).Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCaller attaches the verified caller to the request context. Requests
// without a valid token proceed anonymously and the core rejects them.
func (s *Server) withCaller(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := identity.BearerToken(r)
		if !ok {
			next(w, r)
			return
		}
		caller, err := s.tokenVerifier.Verify(r.Context(), token)
		if err != nil {
			util.LoggerFromContext(r.Context()).Info("token rejected", "err", err)
			next(w, r)
			return
		}
		next(w, r.WithContext(identity.WithCaller(r.Context(), caller)))
	})
}

func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	status, err := s.app.ResolveVerification(r.Context())
	writeResult(w, http.StatusOK, status, err)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			// Too large for any upload profile, so the file is never inspected.
			writeResult(w, 0, nil, app.ErrFileTooLarge)
			return
		}
		writeResult(w, 0, nil, result.Validation("Invalid form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := app.UploadInput{
		Bucket:     r.FormValue("bucket"),
		Folder:     r.FormValue("folder"),
		IsDocument: parseFlag(r.FormValue("isDocument")),
	}
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		in.File = fileInput(file, header)
	}
	stored, err := s.app.UploadFile(r.Context(), in)
	writeResult(w, http.StatusCreated, stored, err)
}

type deleteRequest struct {
	FilePath string `json:"filePath"`
	Bucket   string `json:"bucket"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeResult(w, 0, nil, result.Validation("Invalid JSON body"))
		return
	}
	err := s.app.DeleteFile(r.Context(), app.DeleteInput{FilePath: req.FilePath, Bucket: req.Bucket})
	writeResult(w, http.StatusOK, nil, err)
}

func fileInput(file multipart.File, header *multipart.FileHeader) *app.FileInput {
	return &app.FileInput{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}

func parseFlag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, result.Envelope{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
}

// writeResult renders the envelope for data or err; okStatus is used on
// success.
func writeResult(w http.ResponseWriter, okStatus int, data any, err error) {
	if err == nil {
		writeJSON(w, okStatus, result.Ok(data))
		return
	}
	writeJSON(w, statusFor(result.KindOf(err)), result.Fail(err))
}

func statusFor(kind result.Kind) int {
	switch kind {
	case result.KindUnauthorized:
		return http.StatusUnauthorized
	case result.KindForbidden:
		return http.StatusForbidden
	case result.KindNotFound:
		return http.StatusNotFound
	case result.KindValidation:
		return http.StatusBadRequest
	case result.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
