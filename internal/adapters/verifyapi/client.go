package verifyapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

// Client consults the remote address-verification API over HTTP(S)
type Client struct {
	endpoint   string
	apiKey     string
	policy     core.Policy
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// checkResponse is the wire shape of a verification response. The role
// flag arrives under either of two keys depending on the API revision.
type checkResponse struct {
	Result       string  `json:"result"`
	Action       string  `json:"action"`
	Reason       string  `json:"reason"`
	ActionReason string  `json:"action_reason"`
	Score        float64 `json:"score"`
	Disposable   bool    `json:"disposable"`
	Role         *bool   `json:"role"`
	RoleBased    *bool   `json:"role_based"`
	CatchAll     bool    `json:"catch_all"`
	MXFound      bool    `json:"mx_found"`
	Reachable    string  `json:"reachable"`
	Free         bool    `json:"free"`
	DurationMS   int64   `json:"duration_ms"`
	SMTPCheck    struct {
		SMTPResult   string `json:"smtp_result"`
		SMTPCode     int    `json:"smtp_code"`
		SMTPResponse string `json:"smtp_response"`
	} `json:"smtp_check"`
	BounceHistory struct {
		Bounced     bool `json:"bounced"`
		BounceCount int  `json:"bounce_count"`
		Blacklisted bool `json:"blacklisted"`
	} `json:"bounce_history"`
	Settings map[string]interface{} `json:"settings"`
	Error    string                 `json:"error"`
}

// NewClient creates a new verification API client. The endpoint scheme
// selects encrypted or plain transport; anything else is refused.
func NewClient(
	apiURL string,
	apiKey string,
	policy core.Policy,
	timeout time.Duration,
	logger *zap.Logger,
) (*Client, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported API URL scheme: %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		endpoint: apiURL,
		apiKey:   apiKey,
		policy:   policy,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Check issues exactly one verification request for an address. The
// timeout bounds the whole call; an expired timeout abandons the
// underlying request. Failures map to the three sentinel errors, which
// callers treat identically (fail-open) and count separately.
func (c *Client) Check(ctx context.Context, address string) (*core.VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}

	q := req.URL.Query()
	q.Set("address", address)
	q.Set("api_key", c.apiKey)
	q.Set("block_undeliverable", strconv.FormatBool(c.policy.BlockUndeliverable))
	q.Set("block_disposable", strconv.FormatBool(c.policy.BlockDisposable))
	q.Set("block_risky", strconv.FormatBool(c.policy.BlockRisky))
	req.URL.RawQuery = q.Encode()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(err, address, start)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("verification API returned status %d: %w", resp.StatusCode, core.ErrAPIResponse)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %v: %w", err, core.ErrAPIResponse)
	}

	return c.mapResponse(address, &body)
}

// classifyTransportError splits a failed round trip into the timeout
// and transport error kinds
func (c *Client) classifyTransportError(err error, address string, start time.Time) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Debug("Verification request timed out",
			zap.String("address", address),
			zap.Duration("elapsed", time.Since(start)),
			zap.Duration("timeout", c.timeout))
		return fmt.Errorf("no response within %s: %w", c.timeout, core.ErrAPITimeout)
	}
	return fmt.Errorf("request failed: %v: %w", err, core.ErrAPIUnreachable)
}

// mapResponse validates the payload and converts it to the domain
// result. A response with an error indicator, a missing or unknown
// result, or a missing or unknown action is invalid as a whole.
func (c *Client) mapResponse(address string, body *checkResponse) (*core.VerificationResult, error) {
	if body.Error != "" {
		return nil, fmt.Errorf("verification API error %q: %w", body.Error, core.ErrAPIResponse)
	}

	classification, ok := core.ParseClassification(body.Result)
	if !ok {
		return nil, fmt.Errorf("unrecognized result %q: %w", body.Result, core.ErrAPIResponse)
	}
	decision, ok := core.ParseDecision(body.Action)
	if !ok {
		return nil, fmt.Errorf("unrecognized action %q: %w", body.Action, core.ErrAPIResponse)
	}

	reason := body.Reason
	if reason == "" {
		reason = body.ActionReason
	}

	roleBased := false
	if body.Role != nil {
		roleBased = *body.Role
	} else if body.RoleBased != nil {
		roleBased = *body.RoleBased
	}

	return &core.VerificationResult{
		Address:        address,
		Classification: classification,
		Decision:       decision,
		Reason:         reason,
		Score:          int(body.Score),
		Disposable:     body.Disposable,
		RoleBased:      roleBased,
		CatchAll:       body.CatchAll,
		MXFound:        body.MXFound,
		Reachable:      body.Reachable,
		Free:           body.Free,
		SMTPCode:       body.SMTPCheck.SMTPCode,
		DurationMS:     body.DurationMS,
		ObservedAt:     time.Now(),
	}, nil
}
