// Package reporting talks to the advertising reporting API: OAuth2 access
// tokens for the active ad account and asynchronous report requests.
package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"explainx/internal/config"
	"explainx/internal/model"
)

const (
	contentTypeCreateReport = "application/vnd.createasyncreportrequest.v3+json"
	headerClientID          = "Amazon-Advertising-API-ClientId"
	headerScope             = "Amazon-Advertising-API-Scope"
	reportsPath             = "/reporting/reports"
	maxErrorBody            = 4 << 10
)

var (
	// ErrMissingReportID is returned when the API accepted a request without an id.
	ErrMissingReportID = errors.New("no reportId received from reporting API")
	// ErrNoRefreshToken is returned when the account cannot obtain access tokens.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// APIError is a non-2xx answer from the reporting API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to create report: %s. Details: %s", e.Status, e.Body)
}

// Creator requests asynchronous reports for a profile.
type Creator interface {
	CreateReport(ctx context.Context, profileID string, req ReportRequest) (string, error)
}

// Client holds the API endpoint and OAuth2 settings. Authorize binds it to an
// ad account.
type Client struct {
	baseURL  string
	clientID string
	oauth    *oauth2.Config
	http     *http.Client
	store    TokenStore
}

// NewClient builds a client from config. Outgoing calls, token refreshes
// included, go through an otelhttp transport.
func NewClient(cfg config.ReportingConfig, store TokenStore) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store: store,
	}
}

// Authorize returns a Creator that signs requests with acc's tokens,
// refreshing and persisting them when they are close to expiry.
func (c *Client) Authorize(ctx context.Context, acc *model.AdAccount) (Creator, error) {
	if acc.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	ts := NewTokenSource(ctx, c.oauth, acc, c.store)
	return &session{
		baseURL:  c.baseURL,
		clientID: c.clientID,
		http:     oauth2.NewClient(ctx, ts),
	}, nil
}

type session struct {
	baseURL  string
	clientID string
	http     *http.Client
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
	Status   string `json:"status"`
}

func (s *session) CreateReport(ctx context.Context, profileID string, req ReportRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode report request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+reportsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", contentTypeCreateReport)
	httpReq.Header.Set(headerClientID, s.clientID)
	httpReq.Header.Set(headerScope, profileID)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("read report response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}

	var out createReportResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode report response: %w", err)
	}
	if out.ReportID == "" {
		return "", fmt.Errorf("%w. Response: %s", ErrMissingReportID, raw)
	}
	return out.ReportID, nil
}
