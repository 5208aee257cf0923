// Package intercom fetches the Intercom resources the connector needs: the
// user list, and id-to-name mappings for companies, segments and tags.
package intercom

import (
	"context"
	"fmt"
	"strings"

	"github.com/CJWorkbench/intercom/pkg/jsonpath"
	"github.com/CJWorkbench/intercom/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is Intercom's REST API root.
const DefaultBaseURL = "https://api.intercom.io"

// Resource describes one list endpoint.
type Resource struct {
	// Path is the request path and query, relative to the base URL.
	Path string

	// Key is the response field holding the list.
	Key string
}

// Endpoints read by the connector.
var (
	UsersResource     = Resource{Path: "/users?per_page=60&sort=created_at", Key: "users"}
	CompaniesResource = Resource{Path: "/companies?per_page=60", Key: "companies"}
	SegmentsResource  = Resource{Path: "/segments", Key: "segments"}
	TagsResource      = Resource{Path: "/tags", Key: "tags"}
)

// NameMap maps a reference entity id to its name. It may be incomplete
// when pagination stopped at the page cap.
type NameMap map[string]string

// API reads Intercom list endpoints through a paginated fetcher.
type API struct {
	fetcher *pagination.Fetcher
	baseURL string
	logger  zerolog.Logger
}

// NewAPI creates an API rooted at baseURL (DefaultBaseURL if empty).
func NewAPI(fetcher *pagination.Fetcher, baseURL string) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &API{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With().Str("component", "intercom-api").Logger(),
	}
}

// URL returns the absolute URL of a resource's first page.
func (a *API) URL(r Resource) string {
	return a.baseURL + r.Path
}

func (a *API) list(ctx context.Context, bearerToken string, r Resource) ([]pagination.Object, error) {
	items, err := a.fetcher.FetchAll(ctx, a.URL(r), bearerToken, r.Key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.Key, err)
	}
	a.logger.Debug().Str("resource", r.Key).Int("items", len(items)).Msg("Fetched resource")
	return items, nil
}

// Users returns every user record, oldest first.
func (a *API) Users(ctx context.Context, bearerToken string) ([]pagination.Object, error) {
	return a.list(ctx, bearerToken, UsersResource)
}

// Companies returns company names by id. Companies without a name are
// left out of the mapping.
func (a *API) Companies(ctx context.Context, bearerToken string) (NameMap, error) {
	companies, err := a.list(ctx, bearerToken, CompaniesResource)
	if err != nil {
		return nil, err
	}

	names := make(NameMap, len(companies))
	for _, company := range companies {
		id, ok := jsonpath.ID(company, "id")
		if !ok {
			continue
		}
		name, ok := jsonpath.String(company, "name")
		if !ok {
			continue
		}
		names[id] = name
	}
	return names, nil
}

// Segments returns segment names by id.
func (a *API) Segments(ctx context.Context, bearerToken string) (NameMap, error) {
	segments, err := a.list(ctx, bearerToken, SegmentsResource)
	if err != nil {
		return nil, err
	}
	return namesByID(segments), nil
}

// Tags returns tag names by id.
func (a *API) Tags(ctx context.Context, bearerToken string) (NameMap, error) {
	tags, err := a.list(ctx, bearerToken, TagsResource)
	if err != nil {
		return nil, err
	}
	return namesByID(tags), nil
}

// namesByID maps every keyed entity to its name; a missing name maps to "".
func namesByID(entities []pagination.Object) NameMap {
	names := make(NameMap, len(entities))
	for _, entity := range entities {
		id, ok := jsonpath.ID(entity, "id")
		if !ok {
			continue
		}
		name, _ := jsonpath.String(entity, "name")
		names[id] = name
	}
	return names
}
