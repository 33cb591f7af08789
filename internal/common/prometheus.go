package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	OAuthCallbackTotal         = "oauth_callback_total"
	TokenVerifyFailureTotal    = "token_verify_failure_total"
	OAuthStateSweptTotal       = "oauth_state_swept_total"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"path", "status_code"}),
		OAuthCallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: OAuthCallbackTotal,
			Help: "Count of OAuth2 callbacks by provider and outcome",
		}, []string{"provider", "outcome"}),
		TokenVerifyFailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: TokenVerifyFailureTotal,
			Help: "Count of rejected access tokens by failure kind",
		}, []string{"kind"}),
		OAuthStateSweptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: OAuthStateSweptTotal,
			Help: "Count of expired OAuth2 states deleted by the sweeper",
		}, []string{"backend"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"path", "status_code"}),
	}
)
