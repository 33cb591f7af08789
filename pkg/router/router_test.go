package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/logger"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Limit    int    `json:"limit"`
}

type echoResponse struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Limit    int    `json:"limit"`
	UserID   string `json:"user_id"`
}

func newTestRouter() *Router {
	return New(nil, config.Configs{
		Env:     "local",
		Session: config.SessionConfigs{Name: "test", Secret: "secret"},
		Auth:    config.AuthConfigs{TokenSecret: "secret"},
	}, logger.NewLogger(logger.SILENCE))
}

func echo(ctx context.Context, req *echoRequest) (*echoResponse, error) {
	if req.Name == "fail" {
		return nil, errorx.New(errorx.NotFound, "Not found %s", req.Name)
	}

	if req.Name == "panic" {
		return nil, context.Canceled
	}

	return &echoResponse{
		Provider: req.Provider,
		Name:     req.Name,
		Limit:    req.Limit,
		UserID:   xcontext.RequestUserID(ctx),
	}, nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (int64, string, map[string]any) {
	var body struct {
		Code  int64          `json:"code"`
		Error string         `json:"error"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code, body.Error, body.Data
}

func TestRouter_BindQueryAndPath(t *testing.T) {
	r := newTestRouter()
	GET(r, "/echo/{provider}", echo)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo/github?name=foo&limit=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	code, _, data := decode(t, rec)
	require.Equal(t, int64(0), code)
	require.Equal(t, "github", data["provider"])
	require.Equal(t, "foo", data["name"])
	require.EqualValues(t, 7, data["limit"])
}

func TestRouter_BindJSON(t *testing.T) {
	r := newTestRouter()
	POST(r, "/echo/{provider}", echo)

	req := httptest.NewRequest(http.MethodPost, "/echo/line", strings.NewReader(`{"name":"bar","limit":3}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, _, data := decode(t, rec)
	require.Equal(t, "line", data["provider"])
	require.Equal(t, "bar", data["name"])
	require.EqualValues(t, 3, data["limit"])
}

func TestRouter_InvalidJSON(t *testing.T) {
	r := newTestRouter()
	POST(r, "/echo", echo)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, _, _ := decode(t, rec)
	require.Equal(t, int64(errorx.BadRequest), code)
}

func TestRouter_Errors(t *testing.T) {
	r := newTestRouter()
	GET(r, "/echo", echo)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo?name=fail", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	code, msg, _ := decode(t, rec)
	require.Equal(t, int64(errorx.NotFound), code)
	require.Equal(t, "Not found fail", msg)

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo?name=panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	code, msg, _ = decode(t, rec)
	require.Equal(t, int64(errorx.Unknown.Code), code)
	require.Equal(t, errorx.Unknown.Message, msg)
}

func TestRouter_BranchMiddlewares(t *testing.T) {
	r := newTestRouter()

	var closed []string
	r.AddCloser(func(ctx context.Context) {
		closed = append(closed, xcontext.HTTPRequest(ctx).URL.Path)
	})

	authRouter := r.Branch()
	authRouter.Before(func(ctx context.Context) (context.Context, error) {
		if xcontext.HTTPRequest(ctx).Header.Get("X-User") == "" {
			return nil, errorx.New(errorx.Unauthenticated, "Need authentication")
		}
		return xcontext.WithRequestUserID(ctx, xcontext.HTTPRequest(ctx).Header.Get("X-User")), nil
	})

	GET(r, "/public", echo)
	GET(authRouter, "/private", echo)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("X-User", "user1")
	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, data := decode(t, rec)
	require.Equal(t, "user1", data["user_id"])

	require.Equal(t, []string{"/public", "/private", "/private"}, closed)
}

func TestRouter_AfterClearsResponse(t *testing.T) {
	r := newTestRouter()
	r.After(func(ctx context.Context) (context.Context, error) {
		http.Redirect(xcontext.HTTPWriter(ctx), xcontext.HTTPRequest(ctx), "https://example.com", http.StatusFound)
		return xcontext.WithResponse(ctx, nil), nil
	})
	GET(r, "/redirect", echo)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redirect", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://example.com", rec.Header().Get("Location"))
}

func TestRouter_MethodMismatch(t *testing.T) {
	r := newTestRouter()
	POST(r, "/echo", echo)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
