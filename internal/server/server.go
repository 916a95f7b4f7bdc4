package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/hanpama/sineql"
	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	introspection "github.com/hanpama/sineql/internal/introspection"
	reqid "github.com/hanpama/sineql/internal/reqid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the part of *sineql.Engine the server needs.
type Engine interface {
	Execute(ctx context.Context, query string) *sineql.Result
	TypeGraph() *introspection.Graph
}

// CodeBadRequest reports a request the server could not read a query from.
const CodeBadRequest sineql.ErrorCode = "BAD_REQUEST"

// RequestIDHeader carries the query ID back to the client.
const RequestIDHeader = "X-Request-Id"

// Handler is an http.Handler serving the query endpoint:
//
//	POST /query    {"query": "..."} or a text/plain query body
//	GET  /query    ?query=...
//	GET  /schema   compiled type graph (debug engines only)
//	GET  /metrics  Prometheus metrics (when configured)
type Handler struct {
	engine Engine
	opt    Options
	router chi.Router
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Bus receives HTTPStart/HTTPFinish events.
	Bus *eventbus.Bus

	// Gatherer is served on /metrics when set.
	Gatherer prometheus.Gatherer
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithEventBus(b *eventbus.Bus) Option { return func(o *Options) { o.Bus = b } }
func WithMetrics(g prometheus.Gatherer) Option {
	return func(o *Options) { o.Gatherer = g }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates the HTTP handler for engine.
func New(engine Engine, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, MaxBodyBytes: 1 << 20}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{engine: engine, opt: op}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, h.observe)
	r.Group(func(r chi.Router) {
		r.Use(h.cors)
		r.Get("/query", h.serveQuery)
		r.Post("/query", h.serveQuery)
		r.Options("/query", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})
	r.Get("/schema", h.serveSchema)
	if op.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(op.Gatherer, promhttp.HandlerOpts{}))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResult(CodeBadRequest, "not found"), op.Pretty)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResult(CodeBadRequest, "method not allowed"), op.Pretty)
	})
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// observe assigns the query ID, applies the default timeout and publishes
// HTTP events.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
			defer cancel()
		}
		ctx, rid := reqid.NewContext(ctx)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, rid)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		eventbus.Publish(ctx, h.opt.Bus, events.HTTPStart{Request: r})
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			eventbus.Publish(ctx, h.opt.Bus, events.HTTPFinish{Request: r, Route: routePattern(r), Status: status, Duration: time.Since(start)})
		}()
		next.ServeHTTP(ww, r)
	})
}

// routePattern reports the route chi matched for r, or "" when none did.
// It is only complete once the router has served r.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) serveQuery(w http.ResponseWriter, r *http.Request) {
	q, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		writeJSON(w, err.status, errorResult(CodeBadRequest, err.message), h.opt.Pretty)
		return
	}
	res := h.engine.Execute(r.Context(), q)
	writeJSON(w, statusOf(res.Code), res, h.opt.Pretty)
}

func (h *Handler) serveSchema(w http.ResponseWriter, _ *http.Request) {
	g := h.engine.TypeGraph()
	if g == nil {
		writeJSON(w, http.StatusNotFound, errorResult(CodeBadRequest, "schema introspection is disabled"), h.opt.Pretty)
		return
	}
	writeJSON(w, http.StatusOK, g, h.opt.Pretty)
}

// statusOf maps result codes onto HTTP statuses.
func statusOf(code sineql.ErrorCode) int {
	switch code {
	case "":
		return http.StatusOK
	case sineql.CodeQuery:
		return http.StatusBadRequest
	case sineql.CodeHandler:
		return http.StatusBadGateway
	case sineql.CodeCanceled:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ------------------ Request parsing ------------------

type QueryRequest struct {
	Query string `json:"query"`
}

type requestError struct {
	status  int
	message string
}

func badRequest(msg string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: msg}
}

func parseRequest(r *http.Request, maxBody int64) (string, *requestError) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return "", badRequest("missing 'query'")
		}
		return q, nil
	}

	ct := r.Header.Get("Content-Type")
	isJSON := ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;")
	isText := ct == "text/plain" || strings.HasPrefix(ct, "text/plain;")
	if !isJSON && !isText {
		return "", &requestError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", badRequest("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return "", &requestError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}

	if isText {
		if strings.TrimSpace(string(body)) == "" {
			return "", badRequest("missing 'query'")
		}
		return string(body), nil
	}
	var req QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", badRequest("invalid JSON")
	}
	if req.Query == "" {
		return "", badRequest("missing 'query'")
	}
	return req.Query, nil
}

// ------------------ Response formatting ------------------

func errorResult(code sineql.ErrorCode, msg string) *sineql.Result {
	return &sineql.Result{Code: code, Error: &sineql.ErrorInfo{Message: msg}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
