package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/logger"
	"github.com/kizuna-social/backend/pkg/session"
	"github.com/kizuna-social/backend/pkg/token"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc may return a nil context to keep the current one.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the response has been written, whatever the result is.
type CloserFunc func(ctx context.Context)

type Router struct {
	mux *http.ServeMux

	cfg          config.Configs
	logger       logger.Logger
	db           *gorm.DB
	tokenEngine  token.Engine
	sessionStore *session.Store
	httpClient   *http.Client

	befores []MiddlewareFunc
	afters  []MiddlewareFunc
	closers []CloserFunc
}

func New(db *gorm.DB, cfg config.Configs, logger logger.Logger) *Router {
	return &Router{
		mux:          http.NewServeMux(),
		cfg:          cfg,
		logger:       logger,
		db:           db,
		tokenEngine:  token.NewEngine(cfg.Auth.TokenSecret),
		sessionStore: session.NewCookieStore(cfg.Session.Name, cfg.Env != "local", []byte(cfg.Session.Secret)),
		httpClient:   &http.Client{Timeout: cfg.Auth.ProviderTimeout},
	}
}

// Branch returns a router sharing the same routes but owning a copy of the middlewares, so
// middlewares added to the branch do not affect the parent.
func (r *Router) Branch() *Router {
	clone := *r
	clone.befores = append([]MiddlewareFunc(nil), r.befores...)
	clone.afters = append([]MiddlewareFunc(nil), r.afters...)
	clone.closers = append([]CloserFunc(nil), r.closers...)
	return &clone
}

func (r *Router) Before(m MiddlewareFunc) {
	r.befores = append(r.befores, m)
}

func (r *Router) After(m MiddlewareFunc) {
	r.afters = append(r.afters, m)
}

func (r *Router) AddCloser(c CloserFunc) {
	r.closers = append(r.closers, c)
}

// Handle registers a raw http.Handler, e.g. the metrics exporter.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodGet, pattern, handler)
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodPost, pattern, handler)
}

func DELETE[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodDelete, pattern, handler)
}

var pathValueRegex = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\.{0,3}\}`)

func route[Request, Response any](
	r *Router,
	method, pattern string,
	handler HandlerFunc[Request, Response],
) {
	var pathValues []string
	for _, match := range pathValueRegex.FindAllStringSubmatch(pattern, -1) {
		pathValues = append(pathValues, match[1])
	}

	befores, afters, closers := r.befores, r.afters, r.closers
	r.mux.HandleFunc(method+" "+pattern, func(w http.ResponseWriter, req *http.Request) {
		ctx := r.newContext(req, w)
		defer func() {
			for _, c := range closers {
				c(ctx)
			}
		}()

		ctx, err := serve(ctx, req, pathValues, befores, afters, handler)
		if err != nil {
			ctx = xcontext.WithError(ctx, err)
			writeError(ctx, w, err)
			return
		}

		if resp := xcontext.Response(ctx); resp != nil {
			if err := WriteJSON(w, http.StatusOK, newResponse(resp)); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
			}
		}
	})
}

func serve[Request, Response any](
	ctx context.Context,
	req *http.Request,
	pathValues []string,
	befores, afters []MiddlewareFunc,
	handler HandlerFunc[Request, Response],
) (context.Context, error) {
	ctx, err := runMiddlewares(ctx, befores)
	if err != nil {
		return ctx, err
	}

	var request Request
	if err := bind(req, pathValues, &request); err != nil {
		xcontext.Logger(ctx).Debugf("Cannot bind the request: %v", err)
		return ctx, errorx.New(errorx.BadRequest, "Invalid request")
	}

	resp, err := handler(ctx, &request)
	if err != nil {
		return ctx, err
	}

	if resp != nil {
		ctx = xcontext.WithResponse(ctx, resp)
	}

	return runMiddlewares(ctx, afters)
}

func runMiddlewares(ctx context.Context, middlewares []MiddlewareFunc) (context.Context, error) {
	for _, m := range middlewares {
		newCtx, err := m(ctx)
		if err != nil {
			return ctx, err
		}

		if newCtx != nil {
			ctx = newCtx
		}
	}

	return ctx, nil
}

func (r *Router) newContext(req *http.Request, w http.ResponseWriter) context.Context {
	ctx := req.Context()
	ctx = xcontext.WithConfigs(ctx, r.cfg)
	ctx = xcontext.WithLogger(ctx, r.logger)
	ctx = xcontext.WithDB(ctx, r.db)
	ctx = xcontext.WithTokenEngine(ctx, r.tokenEngine)
	ctx = xcontext.WithSessionStore(ctx, r.sessionStore)
	ctx = xcontext.WithHTTPClient(ctx, r.httpClient)
	ctx = xcontext.WithHTTPRequest(ctx, req)
	ctx = xcontext.WithHTTPWriter(ctx, w)
	return ctx
}

// bind fills the request struct. JSON bodies are decoded first, then query parameters and path
// values are applied using the json tags of the struct.
func bind(req *http.Request, pathValues []string, v any) error {
	if req.Body != nil && strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(req.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}

	values := map[string]any{}
	for key, value := range req.URL.Query() {
		if len(value) == 1 {
			values[key] = value[0]
		} else {
			values[key] = value
		}
	}

	for _, name := range pathValues {
		values[name] = req.PathValue(name)
	}

	if len(values) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(values)
}
