package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intercom_pages_fetched_total",
		Help: "Total number of list pages fetched by result key",
	}, []string{"key"})

	paginationTruncatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intercom_pagination_truncated_total",
		Help: "Total number of paginated fetches stopped by the page cap",
	}, []string{"key"})
)

// DefaultMaxPages is the page cap applied per paginated fetch.
const DefaultMaxPages = 50

// Config holds fetcher configuration
type Config struct {
	// MaxPages is the maximum number of page requests per FetchAll call.
	MaxPages int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxPages: DefaultMaxPages,
	}
}

// PageFetcher is the interface the Intercom client implements for
// single-page fetching.
type PageFetcher interface {
	// FetchPage GETs url with bearerToken and returns the raw response body.
	FetchPage(ctx context.Context, url, bearerToken string) ([]byte, error)
}

// Object is a decoded JSON object. Numbers are json.Number.
type Object = map[string]any

// Fetcher walks next-page links
type Fetcher struct {
	source PageFetcher
	config Config
}

// NewFetcher creates a new fetcher
func NewFetcher(source PageFetcher, config Config) *Fetcher {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}

	return &Fetcher{
		source: source,
		config: config,
	}
}

// MaxPages returns the page cap.
func (f *Fetcher) MaxPages() int {
	return f.config.MaxPages
}

// FetchAll requests url and each following page, and returns the
// concatenation of the lists found at key.
//
// Errors from the PageFetcher are returned unchanged; malformed responses
// yield *ShapeError. Hitting the page cap is not an error.
func (f *Fetcher) FetchAll(ctx context.Context, url, bearerToken, key string) ([]Object, error) {
	start := time.Now()
	logger := log.With().Str("component", "pagination").Str("key", key).Logger()

	var results []Object
	pageURL := url

	for page := 1; page <= f.config.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := f.source.FetchPage(ctx, pageURL, bearerToken)
		if err != nil {
			return nil, err
		}
		pagesFetchedTotal.WithLabelValues(key).Inc()

		items, next, err := parsePage(body, pageURL, key)
		if err != nil {
			return nil, err
		}
		results = append(results, items...)

		logger.Debug().
			Int("page", page).
			Int("items", len(items)).
			Bool("has_next", next != "").
			Msg("Fetched page")

		if next == "" {
			logger.Debug().
				Int("pages", page).
				Int("items", len(results)).
				Dur("duration", time.Since(start)).
				Msg("Fetch complete")
			return results, nil
		}

		if page == f.config.MaxPages {
			paginationTruncatedTotal.WithLabelValues(key).Inc()
			logger.Warn().
				Int("max_pages", f.config.MaxPages).
				Int("items", len(results)).
				Msg("Page cap reached - results truncated")
			break
		}
		pageURL = next
	}

	return results, nil
}

// parsePage decodes one list response and returns its items and the next
// page URL ("" when there is none).
func parsePage(body []byte, url, key string) ([]Object, string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, "", &ShapeError{URL: url, Reason: ReasonInvalidJSON, Err: err}
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, "", &ShapeError{URL: url, Reason: ReasonNotObject}
	}

	raw, ok := obj[key]
	if !ok {
		return nil, "", &ShapeError{URL: url, Key: key, Reason: ReasonMissingKey}
	}

	list, ok := raw.([]any)
	if !ok && raw != nil {
		return nil, "", &ShapeError{URL: url, Key: key, Reason: ReasonNotList}
	}

	items := make([]Object, 0, len(list))
	for i, item := range list {
		o, ok := item.(map[string]any)
		if !ok {
			return nil, "", &ShapeError{
				URL:    url,
				Key:    key,
				Reason: ReasonNotList,
				Err:    fmt.Errorf("item %d is not an object", i),
			}
		}
		items = append(items, o)
	}

	return items, nextPage(obj), nil
}

// nextPage returns pages.next when it is a non-empty string.
func nextPage(obj map[string]any) string {
	pages, ok := obj["pages"].(map[string]any)
	if !ok {
		return ""
	}
	next, _ := pages["next"].(string)
	return next
}
