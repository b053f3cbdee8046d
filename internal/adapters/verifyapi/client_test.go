package verifyapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

func testPolicy() core.Policy {
	return core.Policy{
		BlockUndeliverable: true,
		BlockDisposable:    true,
		BlockRisky:         false,
	}
}

func newTestClient(t *testing.T, endpoint string, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(endpoint, "test-key", testPolicy(), timeout, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestCheckSendsQueryParameters(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"address":             q.Get("address"),
			"api_key":             q.Get("api_key"),
			"block_undeliverable": q.Get("block_undeliverable"),
			"block_disposable":    q.Get("block_disposable"),
			"block_risky":         q.Get("block_risky"),
		}
		fmt.Fprint(w, `{"result":"deliverable","action":"allow"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)
	_, err := client.Check(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"address":             "user@example.com",
		"api_key":             "test-key",
		"block_undeliverable": "true",
		"block_disposable":    "true",
		"block_risky":         "false",
	}, gotQuery)
}

func TestCheckMapsFullResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"result": "deliverable",
			"action": "allow",
			"reason": "",
			"action_reason": "mailbox exists",
			"score": 97.4,
			"disposable": false,
			"role": false,
			"catch_all": true,
			"mx_found": true,
			"reachable": "yes",
			"free": true,
			"duration_ms": 142,
			"smtp_check": {"smtp_result": "ok", "smtp_code": 250, "smtp_response": "2.1.5 OK"},
			"bounce_history": {"bounced": false, "bounce_count": 0, "blacklisted": false},
			"settings": {"block_undeliverable": true}
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)
	result, err := client.Check(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", result.Address)
	assert.Equal(t, core.ClassDeliverable, result.Classification)
	assert.Equal(t, core.DecisionAllow, result.Decision)
	assert.Equal(t, "mailbox exists", result.Reason, "empty reason falls back to action_reason")
	assert.Equal(t, 97, result.Score)
	assert.False(t, result.Disposable)
	assert.False(t, result.RoleBased)
	assert.True(t, result.CatchAll)
	assert.True(t, result.MXFound)
	assert.Equal(t, "yes", result.Reachable)
	assert.True(t, result.Free)
	assert.Equal(t, 250, result.SMTPCode)
	assert.Equal(t, int64(142), result.DurationMS)
	assert.False(t, result.ObservedAt.IsZero())
	assert.Empty(t, result.Source, "attribution is the caller's business")
}

func TestCheckPrefersReasonOverActionReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"risky","action":"block","reason":"blocked by policy","action_reason":"other"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)
	result, err := client.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "blocked by policy", result.Reason)
}

func TestCheckRoleFlagKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"role key", `{"result":"deliverable","action":"allow","role":true}`, true},
		{"role_based key", `{"result":"deliverable","action":"allow","role_based":true}`, true},
		{"role wins over role_based", `{"result":"deliverable","action":"allow","role":false,"role_based":true}`, false},
		{"neither key", `{"result":"deliverable","action":"allow"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, time.Second)
			result, err := client.Check(context.Background(), "user@example.com")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.RoleBased)
		})
	}
}

func TestCheckInvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"error field", `{"result":"deliverable","action":"allow","error":"invalid api key"}`},
		{"missing result", `{"action":"allow"}`},
		{"unknown result", `{"result":"spam","action":"allow"}`},
		{"missing action", `{"result":"deliverable"}`},
		{"unknown action", `{"result":"deliverable","action":"quarantine"}`},
		{"malformed json", `{"result":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, time.Second)
			_, err := client.Check(context.Background(), "user@example.com")
			assert.ErrorIs(t, err, core.ErrAPIResponse)
		})
	}
}

func TestCheckNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)
	_, err := client.Check(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, core.ErrAPIResponse)
}

func TestCheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(400 * time.Millisecond)
		fmt.Fprint(w, `{"result":"deliverable","action":"allow"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 50*time.Millisecond)
	_, err := client.Check(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, core.ErrAPITimeout)
}

func TestCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := newTestClient(t, endpoint, time.Second)
	_, err := client.Check(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, core.ErrAPIUnreachable)
}

func TestNewClientValidatesEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://verifier.example", "verifier.example"} {
		_, err := NewClient(endpoint, "key", testPolicy(), time.Second, zap.NewNop())
		assert.Error(t, err, "endpoint %q must be refused", endpoint)
	}

	for _, endpoint := range []string{"http://verifier.example/v1/verify", "https://verifier.example/v1/verify"} {
		_, err := NewClient(endpoint, "key", testPolicy(), time.Second, zap.NewNop())
		assert.NoError(t, err)
	}
}

func TestNewClientDefaultTimeout(t *testing.T) {
	client, err := NewClient("https://verifier.example", "key", testPolicy(), 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.timeout)
}
