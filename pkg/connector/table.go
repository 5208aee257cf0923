package connector

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/CJWorkbench/intercom/pkg/intercom"
	"github.com/CJWorkbench/intercom/pkg/jsonpath"
	"github.com/CJWorkbench/intercom/pkg/pagination"
	"github.com/CJWorkbench/intercom/pkg/table"
)

// Columns lists the output columns in table order.
var Columns = []string{
	"email",
	"name",
	"city",
	"country",
	"session_count",
	"last_request_at",
	"facebook_username",
	"linkedin_username",
	"twitter_username",
	"companies",
	"segments",
	"tags",
	"timezone",
	"created_at",
	"updated_at",
	"id",
}

// Social services exploded out of social_profiles, in column order.
var socialServices = []string{"facebook", "linkedin", "twitter"}

// NameSeparator joins resolved reference names.
const NameSeparator = "; "

// BuildTable flattens users into one row per user, in input order.
// Reference ids missing from companies, segments or tags are dropped.
func BuildTable(users []pagination.Object, companies, segments, tags intercom.NameMap) (*table.Table, error) {
	n := len(users)

	email := table.NewStringBuilder("email", n)
	name := table.NewStringBuilder("name", n)
	city := table.NewCategoryBuilder("city", n)
	country := table.NewCategoryBuilder("country", n)
	sessionCount := table.NewInt32Builder("session_count", n)
	lastRequestAt := table.NewTimestampBuilder("last_request_at", n)
	social := make([]*table.StringBuilder, len(socialServices))
	for i, service := range socialServices {
		social[i] = table.NewStringBuilder(service+"_username", n)
	}
	companyNames := table.NewCategoryBuilder("companies", n)
	segmentNames := table.NewCategoryBuilder("segments", n)
	tagNames := table.NewCategoryBuilder("tags", n)
	timezone := table.NewStringBuilder("timezone", n)
	createdAt := table.NewTimestampBuilder("created_at", n)
	updatedAt := table.NewTimestampBuilder("updated_at", n)
	id := table.NewStringBuilder("id", n)

	for _, user := range users {
		appendString(email, user, "email")
		appendString(name, user, "name")
		appendCategory(city, user, "location_data", "city_name")
		appendCategory(country, user, "location_data", "country_name")
		appendInt32(sessionCount, user, "session_count")
		appendTimestamp(lastRequestAt, user, "last_request_at")

		for i, username := range socialUsernames(user) {
			if username == nil {
				social[i].AppendNull()
			} else {
				social[i].Append(*username)
			}
		}

		companyNames.Append(idsToNames(user, companies, "companies", "companies"))
		segmentNames.Append(idsToNames(user, segments, "segments", "segments"))
		tagNames.Append(idsToNames(user, tags, "tags", "tags"))
		appendString(timezone, user, "location_data", "timezone")
		appendTimestamp(createdAt, user, "created_at")
		appendTimestamp(updatedAt, user, "updated_at")

		if v, ok := jsonpath.ID(user, "id"); ok {
			id.Append(v)
		} else {
			id.AppendNull()
		}
	}

	return table.New(
		email.Column(),
		name.Column(),
		city.Column(),
		country.Column(),
		sessionCount.Column(),
		lastRequestAt.Column(),
		social[0].Column(),
		social[1].Column(),
		social[2].Column(),
		companyNames.Column(),
		segmentNames.Column(),
		tagNames.Column(),
		timezone.Column(),
		createdAt.Column(),
		updatedAt.Column(),
		id.Column(),
	)
}

// idsToNames resolves the {id} objects listed at path through names and
// joins the result. Unknown ids are skipped.
func idsToNames(user pagination.Object, names intercom.NameMap, path ...string) string {
	refs, ok := jsonpath.List(user, path...)
	if !ok {
		return ""
	}

	resolved := make([]string, 0, len(refs))
	for _, ref := range refs {
		refID, ok := jsonpath.ID(ref, "id")
		if !ok {
			continue
		}
		if name, ok := names[refID]; ok {
			resolved = append(resolved, name)
		}
	}
	return strings.Join(resolved, NameSeparator)
}

// socialUsernames returns the username of the first profile for each of
// socialServices, or nil when the user has none.
func socialUsernames(user pagination.Object) []*string {
	usernames := make([]*string, len(socialServices))

	profiles, ok := jsonpath.List(user, "social_profiles", "social_profiles")
	if !ok {
		return usernames
	}

	for i, service := range socialServices {
		for _, profile := range profiles {
			if s, _ := jsonpath.String(profile, "name"); s != service {
				continue
			}
			if username, ok := jsonpath.String(profile, "username"); ok {
				usernames[i] = &username
			}
			break
		}
	}
	return usernames
}

func appendString(b *table.StringBuilder, user pagination.Object, path ...string) {
	if s, ok := jsonpath.String(user, path...); ok {
		b.Append(s)
	} else {
		b.AppendNull()
	}
}

func appendCategory(b *table.CategoryBuilder, user pagination.Object, path ...string) {
	if s, ok := jsonpath.String(user, path...); ok {
		b.Append(s)
	} else {
		b.AppendNull()
	}
}

func appendInt32(b *table.Int32Builder, user pagination.Object, path ...string) {
	raw, _ := jsonpath.Lookup(user, path...)
	if v, ok := toInt32(raw); ok {
		b.Append(v)
	} else {
		b.AppendNull()
	}
}

func appendTimestamp(b *table.TimestampBuilder, user pagination.Object, path ...string) {
	raw, _ := jsonpath.Lookup(user, path...)
	if t, ok := toTime(raw); ok {
		b.Append(t)
	} else {
		b.AppendNull()
	}
}

// toInt32 accepts integral numbers that fit in 32 bits.
func toInt32(raw any) (int32, bool) {
	var f float64
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return 0, false
			}
			return int32(i), true
		}
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	default:
		return 0, false
	}

	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int32(f), true
}

// toTime reads Unix epoch seconds, keeping any fractional part.
func toTime(raw any) (time.Time, bool) {
	var secs float64
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0).UTC(), true
		}
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	case float64:
		secs = v
	default:
		return time.Time{}, false
	}

	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}
