package smepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"smepay_gateway/internal/metrics"
	"smepay_gateway/internal/telemetry"
)

const (
	productionBaseURL = "https://extranet.smepay.in/api/"
	stagingBaseURL    = "https://staging.smepay.in/api/"

	requestTimeout = 15 * time.Second

	// The provider never documents a token TTL, so tokens are cached only
	// briefly and refreshed on expiry.
	defaultTokenTTL = time.Minute
)

// Options configures a Client for one gateway's credentials and environment.
type Options struct {
	Mode         string // "production" or "development"
	DisplayMode  string // "wizard" appends the wiz/ API path
	ClientID     string
	ClientSecret string

	// BaseURL overrides the mode-derived base, used by tests.
	BaseURL string

	TokenTTL time.Duration
}

// Client talks to the SMEPay external API. All operations are blocking JSON
// POSTs with a fixed timeout; failures come back as *APIError so callers can
// surface the provider's message without crashing checkout.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenTTL    time.Duration
}

func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = productionBaseURL
		if opts.Mode == "development" {
			base = stagingBaseURL
		}
	}
	if opts.DisplayMode == "wizard" {
		base += "wiz/"
	}

	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Client{
		baseURL:      base,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		http:         &http.Client{Timeout: requestTimeout},
		tokenTTL:     ttl,
	}
}

// post sends one JSON request and decodes the response body into a generic
// map. Transport failures and unparseable bodies are returned as *APIError.
func (c *Client) post(ctx context.Context, op, path string, payload interface{}, token string) (map[string]interface{}, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &APIError{Operation: op, Message: "failed to encode request"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, &APIError{Operation: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(op, "transport_error").Inc()
		return nil, 0, &APIError{Operation: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(op, "transport_error").Inc()
		return nil, resp.StatusCode, &APIError{Operation: op, Message: err.Error()}
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		metrics.ProviderRequests.WithLabelValues(op, "invalid_response").Inc()
		return nil, resp.StatusCode, &APIError{Operation: op, Message: "Invalid response from SMEPay API."}
	}

	metrics.ProviderRequests.WithLabelValues(op, "ok").Inc()
	if telemetry.Logger != nil {
		telemetry.Logger.Debug("SMEPay request",
			zap.String("operation", op),
			zap.Int("status_code", resp.StatusCode),
		)
	}

	return body, resp.StatusCode, nil
}

// AccessToken returns a cached bearer token or fetches a fresh one. Absence
// of access_token in the response is failure regardless of HTTP status.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, _, err := c.post(ctx, "auth", "external/auth", map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}, "")
	if err != nil {
		return "", err
	}

	if msg, ok := body["error"].(string); ok && msg != "" {
		return "", &APIError{Operation: "auth", Message: msg}
	}

	token, _ := body["access_token"].(string)
	if token == "" {
		return "", &APIError{Operation: "auth", Message: "Unable to retrieve access token from SMEPay API."}
	}

	c.token = token
	c.tokenExpiry = time.Now().Add(c.tokenTTL)
	return token, nil
}

// CreateOrder creates a remote payment session and returns its slug.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"client_id":    c.clientID,
		"amount":       FormatAmount(req.Amount),
		"order_id":     req.OrderID,
		"callback_url": req.CallbackURL,
		"customer_details": map[string]string{
			"email":  req.Customer.Email,
			"mobile": req.Customer.Mobile,
			"name":   req.Customer.Name,
		},
	}

	body, _, err := c.post(ctx, "create_order", "external/order/create", payload, token)
	if err != nil {
		return nil, err
	}

	if msg, ok := body["error"].(string); ok && msg != "" {
		return nil, &APIError{Operation: "create_order", Message: msg}
	}

	slug, _ := body["order_slug"].(string)
	if slug == "" {
		return nil, &APIError{Operation: "create_order", Message: "Unknown API error"}
	}

	providerOrderID, _ := body["order_id"].(string)
	return &CreateOrderResponse{Slug: slug, ProviderOrderID: providerOrderID}, nil
}

// Initiate fetches the inline QR code, payment deep-link and per-app UPI
// intents for a created session. Only used in inline display mode.
func (c *Client) Initiate(ctx context.Context, slug string) (*InitiateResponse, error) {
	if slug == "" || c.clientID == "" {
		return nil, &APIError{Operation: "initiate", Message: "Invalid slug or client ID."}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, _, err := c.post(ctx, "initiate", "external/order/initiate", map[string]string{
		"slug":      slug,
		"client_id": c.clientID,
	}, token)
	if err != nil {
		return nil, err
	}

	if ok, _ := body["status"].(bool); !ok {
		if msg, ok := body["error"].(string); ok && msg != "" {
			return nil, &APIError{Operation: "initiate", Message: msg}
		}
		return nil, &APIError{Operation: "initiate", Message: "Failed to initiate SMEPay payment."}
	}

	resp := &InitiateResponse{Intents: map[string]string{}}
	resp.QRCode, _ = body["qr_code"].(string)
	resp.PaymentLink, _ = body["payment_link"].(string)
	if intents, ok := body["intents"].(map[string]interface{}); ok {
		for app, link := range intents {
			if s, ok := link.(string); ok {
				resp.Intents[app] = s
			}
		}
	}
	return resp, nil
}

// Validate asks the provider for the authoritative payment status of a slug.
func (c *Client) Validate(ctx context.Context, slug string, amount float64) (*StatusResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, _, err := c.post(ctx, "validate", "external/order/validate", map[string]interface{}{
		"client_id": c.clientID,
		"amount":    FormatAmount(amount),
		"slug":      slug,
	}, token)
	if err != nil {
		return nil, err
	}

	return statusFromBody("validate", body)
}

// CheckStatus looks a session up by its remote order reference.
func (c *Client) CheckStatus(ctx context.Context, remoteOrderID string) (*StatusResponse, error) {
	if remoteOrderID == "" || c.clientID == "" {
		return nil, &APIError{Operation: "check_status", Message: "Invalid order ID or client ID."}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, code, err := c.post(ctx, "check_status", "external/order/status", map[string]string{
		"order_id":  remoteOrderID,
		"client_id": c.clientID,
	}, token)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, &APIError{Operation: "check_status", Message: fmt.Sprintf("SMEPay API returned HTTP %d", code)}
	}

	return statusFromBody("check_status", body)
}

func statusFromBody(op string, body map[string]interface{}) (*StatusResponse, error) {
	if ok, _ := body["status"].(bool); ok {
		status, _ := body["payment_status"].(string)
		return &StatusResponse{PaymentStatus: status}, nil
	}

	if msg, ok := body["error"].(string); ok && msg != "" {
		return nil, &APIError{Operation: op, Message: msg}
	}
	return nil, &APIError{Operation: op, Message: "Failed to retrieve order status."}
}
