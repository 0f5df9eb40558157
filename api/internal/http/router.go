package httpx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signupform/signup/api/internal/domain"
	"github.com/signupform/signup/api/internal/repository"
	"github.com/signupform/signup/api/internal/service/registration"
	"github.com/signupform/signup/pkg/validation"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux                  *http.ServeMux
	logger               *slog.Logger
	registration         registration.Service
	metricsOnce          sync.Once
	metricsInitialized   bool
	requestTotal         *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	registrationOutcomes *prometheus.CounterVec
}

const (
	healthCheckTimeout = 2 * time.Second
	maxRegisterBody    = 1 << 20

	msgInvalidRequest = "invalid request format"
	msgDuplicateEmail = "email already registered"
	msgRegistered     = "registration successful"
	msgInternal       = "internal server error"
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, registrationSvc registration.Service) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:          http.NewServeMux(),
		logger:       logger,
		registration: registrationSvc,
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/healthz", r.audit(r.instrument("/healthz", r.handleHealthz)))
	r.mux.HandleFunc("/register", r.audit(r.instrument("/register", r.handleRegister)))
	r.mux.HandleFunc("/form.html", r.audit(r.instrument("/form.html", r.handleForm)))
	r.mux.HandleFunc("/", r.audit(r.instrument("/", r.handleForm)))
}

type registerPayload struct {
	FullName        string `json:"fullname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Confirm         string `json:"confirm"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	payload, err := decodeRegisterPayload(http.MaxBytesReader(w, req.Body, maxRegisterBody))
	if err != nil {
		r.recordRegistration("invalid_request", "")
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	confirm := payload.Confirm
	if confirm == "" {
		confirm = payload.ConfirmPassword
	}
	user, err := r.registration.Register(req.Context(), domain.RegistrationRequest{
		FullName:        payload.FullName,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		var failure *validation.Failure
		switch {
		case errors.As(err, &failure):
			r.recordRegistration("validation_failed", failure.Rule.Name)
			writeError(w, http.StatusBadRequest, failure.Rule.Message)
		case errors.Is(err, repository.ErrDuplicateEmail):
			r.recordRegistration("duplicate_email", "")
			writeError(w, http.StatusOK, msgDuplicateEmail)
		default:
			r.recordRegistration("error", "")
			r.logger.Error("registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}
	r.recordRegistration("success", "")
	r.logger.Debug("registration accepted", "user_id", user.ID)
	writeSuccess(w, msgRegistered)
}

// decodeRegisterPayload accepts exactly one JSON object regardless of the
// declared content type.
func decodeRegisterPayload(body io.Reader) (registerPayload, error) {
	var raw json.RawMessage
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return registerPayload{}, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return registerPayload{}, errors.New("trailing data after JSON body")
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return registerPayload{}, errors.New("JSON body is not an object")
	}
	var payload registerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return registerPayload{}, err
	}
	return payload, nil
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()
	component := map[string]any{"status": "up"}
	status := "ok"
	if err := r.registration.Health(ctx); err != nil {
		status = "degraded"
		component = map[string]any{
			"status": "down",
			"error":  err.Error(),
		}
	}
	payload := map[string]any{
		"status": status,
		"components": map[string]any{
			"store": component,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
