package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kizuna-social/backend/internal/common"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	common.PromCounters[common.OAuthCallbackTotal].WithLabelValues("github", "linked").Inc()

	handler := NewHandler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `oauth_callback_total{outcome="linked",provider="github"}`)
	require.Contains(t, rec.Body.String(), "go_goroutines")

	// Each handler owns its registry.
	require.NotPanics(t, func() { NewHandler() })
}
