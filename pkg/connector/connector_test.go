package connector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CJWorkbench/intercom/internal/testutil"
	"github.com/CJWorkbench/intercom/pkg/client"
	"github.com/CJWorkbench/intercom/pkg/intercom"
	"github.com/CJWorkbench/intercom/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnector(t *testing.T, mock *testutil.MockIntercom) *Connector {
	t.Helper()

	c, err := client.New(client.DefaultConfig("intercom-test/1.0"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	fetcher := pagination.NewFetcher(c, pagination.DefaultConfig())
	return New(intercom.NewAPI(fetcher, mock.URL()))
}

func signedIn(token string) Secrets {
	return Secrets{
		"access_token": map[string]any{
			"name": "user@example.com",
			"secret": map[string]any{
				"access_token": token,
				"token_type":   "Bearer",
			},
		},
	}
}

// seedHappyPath registers every resource the connector reads.
func seedHappyPath(mock *testutil.MockIntercom) {
	mock.SetList("users", []map[string]any{
		{
			"id":    "1",
			"email": "bob@example.com",
			"companies": map[string]any{
				"companies": []any{map[string]any{"id": "c1"}},
			},
			"social_profiles": map[string]any{
				"social_profiles": []any{map[string]any{"name": "twitter", "username": "bob"}},
			},
			"segments": map[string]any{
				"segments": []any{map[string]any{"id": "s1"}, map[string]any{"id": "s2"}},
			},
		},
		{"id": "2", "email": "ann@example.com"},
		{"id": "3"},
	}, 2)
	mock.SetList("companies", []map[string]any{
		{"id": "c1", "name": "Acme"},
	}, 60)
	mock.SetList("segments", []map[string]any{
		{"id": "s1", "name": "Active"},
		{"id": "s2", "name": "New"},
	}, 0)
	mock.SetList("tags", []map[string]any{}, 0)
}

func TestSecrets_BearerToken(t *testing.T) {
	tests := []struct {
		name    string
		secrets Secrets
		want    string
		wantOK  bool
	}{
		{"signed in", signedIn("tok"), "tok", true},
		{"nil", nil, "", false},
		{"empty", Secrets{}, "", false},
		{"null access_token", Secrets{"access_token": nil}, "", false},
		{"empty token", signedIn(""), "", false},
		{"legacy token field ignored", Secrets{"token": map[string]any{"secret": map[string]any{"access_token": "x"}}}, "", false},
		{"non-string token", Secrets{"access_token": map[string]any{"secret": map[string]any{"access_token": 7}}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.secrets.BearerToken()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("BearerToken() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFetch_NotAuthenticatedMakesNoRequest(t *testing.T) {
	mock := testutil.NewMockIntercom()
	defer mock.Close()
	seedHappyPath(mock)

	conn := newTestConnector(t, mock)
	result := conn.Fetch(context.Background(), Secrets{})

	assert.Nil(t, result.Table)
	require.NotNil(t, result.Message)
	assert.Equal(t, MessageNotAuthenticated, result.Message.ID)
	assert.Equal(t, "Please sign in to Intercom", result.Message.String())
	assert.ErrorIs(t, result.Err, ErrNotAuthenticated)
	assert.Equal(t, OutcomeNotAuthenticated, result.Outcome)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestFetch_Success(t *testing.T) {
	mock := testutil.NewMockIntercom()
	defer mock.Close()
	seedHappyPath(mock)

	conn := newTestConnector(t, mock)
	result := conn.Fetch(context.Background(), signedIn("tok"))

	require.Nil(t, result.Message, "unexpected message: %v", result.Err)
	require.NotNil(t, result.Table)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.NotEmpty(t, result.InvocationID)

	tbl := result.Table
	assert.Equal(t, Columns, tbl.ColumnNames())
	require.Equal(t, 3, tbl.NumRows())

	assert.Equal(t, "1", cell(t, tbl, "id", 0))
	assert.Equal(t, "2", cell(t, tbl, "id", 1))
	assert.Equal(t, "3", cell(t, tbl, "id", 2))
	assert.Equal(t, "Acme", cell(t, tbl, "companies", 0))
	assert.Equal(t, "Active; New", cell(t, tbl, "segments", 0))
	assert.Equal(t, "", cell(t, tbl, "tags", 0))
	assert.Equal(t, "bob", cell(t, tbl, "twitter_username", 0))
	assert.Nil(t, cell(t, tbl, "facebook_username", 0))

	assert.Equal(t, 2, mock.GetPathCount("/users"))
	assert.Equal(t, 1, mock.GetPathCount("/companies"))
	assert.Equal(t, 1, mock.GetPathCount("/segments"))
	assert.Equal(t, 1, mock.GetPathCount("/tags"))
	assert.Equal(t, "Bearer tok", mock.GetLastRequestHeader().Get("Authorization"))
}

func TestFetch_TransportErrorAbortsRemainingFetches(t *testing.T) {
	mock := testutil.NewMockIntercom()
	defer mock.Close()
	seedHappyPath(mock)
	mock.SetResponse("/companies", testutil.NewServerErrorResponse())

	conn := newTestConnector(t, mock)
	result := conn.Fetch(context.Background(), signedIn("tok"))

	assert.Nil(t, result.Table)
	require.NotNil(t, result.Message)
	assert.Equal(t, MessageHTTPError, result.Message.ID)
	assert.True(t, strings.HasPrefix(result.Message.String(), "Error querying Intercom: "))
	assert.Contains(t, result.Message.String(), "status 500")
	assert.Equal(t, OutcomeHTTPError, result.Outcome)

	var transportErr *client.TransportError
	require.True(t, errors.As(result.Err, &transportErr))
	assert.Equal(t, client.ErrorClassServer, transportErr.ErrorClass)

	assert.Equal(t, 0, mock.GetPathCount("/segments"))
	assert.Equal(t, 0, mock.GetPathCount("/tags"))
}

func TestFetch_ShapeErrorNamesKey(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		key  string
	}{
		{"users missing key", "/users", `{"type": "user.list"}`, `"users"`},
		{"tags missing key", "/tags", `{"type": "tag.list", "data": []}`, `"tags"`},
		{"segments not object", "/segments", `[]`, "JSON Object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockIntercom()
			defer mock.Close()
			seedHappyPath(mock)
			mock.SetResponse(tt.path, testutil.NewHealthyResponse(tt.body))

			conn := newTestConnector(t, mock)
			result := conn.Fetch(context.Background(), signedIn("tok"))

			assert.Nil(t, result.Table)
			require.NotNil(t, result.Message)
			assert.Equal(t, MessageUnexpectedJSON, result.Message.ID)
			assert.True(t, strings.HasPrefix(result.Message.String(), "Error handling Intercom response: "))
			assert.Contains(t, result.Message.String(), tt.key)
			assert.Equal(t, OutcomeUnexpectedJSON, result.Outcome)
		})
	}
}

func TestFetch_TruncatedCompanies(t *testing.T) {
	mock := testutil.NewMockIntercom()
	defer mock.Close()
	seedHappyPath(mock)
	// c1 never shows up within the page cap.
	mock.SetEndlessList("companies", map[string]any{"id": "c0", "name": "Loop"})

	conn := newTestConnector(t, mock)
	result := conn.Fetch(context.Background(), signedIn("tok"))

	require.NotNil(t, result.Table, "unexpected message: %v", result.Err)
	assert.Equal(t, "", cell(t, result.Table, "companies", 0))
	assert.Equal(t, pagination.DefaultMaxPages, mock.GetPathCount("/companies"))
}

func TestFetch_ContextCancelledIsHTTPError(t *testing.T) {
	mock := testutil.NewMockIntercom()
	defer mock.Close()
	seedHappyPath(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := newTestConnector(t, mock)
	result := conn.Fetch(ctx, signedIn("tok"))

	assert.Nil(t, result.Table)
	require.NotNil(t, result.Message)
	assert.Equal(t, MessageHTTPError, result.Message.ID)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestMessage_String(t *testing.T) {
	msg := httpErrorMessage(errors.New("connection refused"))
	assert.Equal(t, "Error querying Intercom: connection refused", msg.String())

	msg = unexpectedJSONMessage(errors.New(`Intercom did not return "users" data`))
	assert.Equal(t, `Error handling Intercom response: Intercom did not return "users" data`, msg.String())

	assert.Equal(t, "Please sign in to Intercom", notAuthenticatedMessage().String())
}
