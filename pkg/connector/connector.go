// Package connector is the Intercom data connector entry point. A single
// Fetch call reads users, companies, segments and tags and returns either a
// row-per-user table or a user-facing message.
package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CJWorkbench/intercom/pkg/intercom"
	"github.com/CJWorkbench/intercom/pkg/jsonpath"
	"github.com/CJWorkbench/intercom/pkg/pagination"
	"github.com/CJWorkbench/intercom/pkg/table"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for connector invocations.
var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intercom_fetch_total",
		Help: "Total connector invocations by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intercom_fetch_duration_seconds",
		Help:    "Connector invocation duration in seconds",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	})

	fetchRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intercom_fetch_rows",
		Help:    "Rows returned by successful connector invocations",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// Invocation outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeNotAuthenticated = "not_authenticated"
	OutcomeHTTPError        = "http_error"
	OutcomeUnexpectedJSON   = "unexpected_json"
)

// ErrNotAuthenticated is reported when the secrets hold no bearer token.
var ErrNotAuthenticated = errors.New("no Intercom access token")

// Secrets is the host's secret record, decoded from JSON.
type Secrets map[string]any

// BearerToken returns the OAuth access token stored by the host's sign-in
// flow at access_token.secret.access_token.
func (s Secrets) BearerToken() (string, bool) {
	token, ok := jsonpath.String(map[string]any(s), "access_token", "secret", "access_token")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Result is the outcome of one invocation: exactly one of Table and Message
// is set. Err holds the underlying failure when Message is set.
type Result struct {
	InvocationID string
	Table        *table.Table
	Message      *Message
	Err          error
	Outcome      string
}

// Connector fetches Intercom data for the host.
type Connector struct {
	api    *intercom.API
	logger zerolog.Logger
}

// New creates a connector reading through api.
func New(api *intercom.API) *Connector {
	return &Connector{
		api:    api,
		logger: log.With().Str("component", "connector").Logger(),
	}
}

// Fetch runs one invocation. Failures are reported in the Result, never
// returned; no partial table is ever produced.
func (c *Connector) Fetch(ctx context.Context, secrets Secrets) Result {
	start := time.Now()
	result := Result{InvocationID: uuid.NewString()}
	logger := c.logger.With().Str("invocation_id", result.InvocationID).Logger()

	defer func() {
		duration := time.Since(start)
		fetchTotal.WithLabelValues(result.Outcome).Inc()
		fetchDuration.Observe(duration.Seconds())

		if result.Table != nil {
			fetchRows.Observe(float64(result.Table.NumRows()))
			logger.Info().
				Int("rows", result.Table.NumRows()).
				Dur("duration", duration).
				Msg("Fetch succeeded")
			return
		}
		ev := logger.Error()
		if result.Outcome == OutcomeNotAuthenticated {
			ev = logger.Info()
		}
		ev.Err(result.Err).
			Str("outcome", result.Outcome).
			Dur("duration", duration).
			Msg("Fetch returned message")
	}()

	token, ok := secrets.BearerToken()
	if !ok {
		msg := notAuthenticatedMessage()
		result.Message = &msg
		result.Err = ErrNotAuthenticated
		result.Outcome = OutcomeNotAuthenticated
		return result
	}

	t, err := c.fetchTable(ctx, token)
	if err != nil {
		var msg Message
		var shapeErr *pagination.ShapeError
		if errors.As(err, &shapeErr) {
			msg = unexpectedJSONMessage(err)
			result.Outcome = OutcomeUnexpectedJSON
		} else {
			msg = httpErrorMessage(err)
			result.Outcome = OutcomeHTTPError
		}
		result.Message = &msg
		result.Err = err
		return result
	}

	result.Table = t
	result.Outcome = OutcomeSuccess
	return result
}

// fetchTable reads the four resources in order; the first error aborts.
func (c *Connector) fetchTable(ctx context.Context, token string) (*table.Table, error) {
	users, err := c.api.Users(ctx, token)
	if err != nil {
		return nil, err
	}

	companies, err := c.api.Companies(ctx, token)
	if err != nil {
		return nil, err
	}

	segments, err := c.api.Segments(ctx, token)
	if err != nil {
		return nil, err
	}

	tags, err := c.api.Tags(ctx, token)
	if err != nil {
		return nil, err
	}

	t, err := BuildTable(users, companies, segments, tags)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return t, nil
}
