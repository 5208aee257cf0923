// Package pagination follows Intercom-style "next page" links.
//
// Intercom list endpoints return a JSON object holding the current page's
// items under a resource key ("users", "companies", ...) and, when more data
// is available, a pages.next URL:
//
//	{"type": "user.list", "users": [...], "pages": {"next": "https://..."}}
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(intercomClient, pagination.DefaultConfig())
//	users, err := fetcher.FetchAll(ctx, "https://api.intercom.io/users?per_page=60", token, "users")
//
// The fetcher:
//   - Requests pages strictly one after another, following pages.next
//   - Stops when a response has no next link
//   - Stops silently after MaxPages requests (the result is then a prefix
//     of the remote collection)
//   - Keeps items in server order, without de-duplication
//   - Fails with *ShapeError when a response is not the expected JSON shape
package pagination
