package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

const (
	authPath     = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"

	transactionType = "CustomerPayBillOnline"

	// Daraja result codes returned by the STK query endpoint.
	ResultCodeSuccess           = "0"
	ResultCodeInsufficientFunds = "1"
	ResultCodeCancelledByUser   = "1032"
	ResultCodeTimeout           = "1037"

	// Returned while the push is still on the customer's handset.
	errorCodeProcessing = "500.001.1001"

	tokenExpirySlack = 30 * time.Second
)

var (
	errConsumerKeyRequired = errors.New("mpesa consumer key is required")
	errShortCodeRequired   = errors.New("mpesa short code is required")
	errPasskeyRequired     = errors.New("mpesa passkey is required")
	errLoggerRequired      = errors.New("mpesa logger is required")
)

// Client wraps the Safaricom Daraja API with centralized auth, logging and
// error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	shortCode  string
	passkey    string
	callback   string

	consumerKey    string
	consumerSecret string

	logger *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

// NewClient initializes the Daraja wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.MpesaConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errConsumerKeyRequired
	}
	if strings.TrimSpace(cfg.ShortCode) == "" {
		return nil, errShortCodeRequired
	}
	if strings.TrimSpace(cfg.Passkey) == "" {
		return nil, errPasskeyRequired
	}

	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		shortCode:      strings.TrimSpace(cfg.ShortCode),
		passkey:        strings.TrimSpace(cfg.Passkey),
		callback:       strings.TrimSpace(cfg.CallbackURL),
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		logger:         logg,
		now:            time.Now,
	}

	logg.Info(ctx, "mpesa client initialized")
	return c, nil
}

// STKPushParams describes one payment prompt pushed to a customer's handset.
type STKPushParams struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
}

// STKPushResponse is the acknowledgement that the prompt was accepted for
// processing. CheckoutRequestID is the handle used to query the result.
type STKPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// STKQueryResponse is the settlement state of a previously pushed prompt.
type STKQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	Pending      bool   `json:"-"`
}

// STKPush sends a payment prompt to the customer's phone.
func (c *Client) STKPush(ctx context.Context, params STKPushParams) (*STKPushResponse, error) {
	timestamp := c.now().Format("20060102150405")
	body := map[string]any{
		"BusinessShortCode": c.shortCode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   transactionType,
		"Amount":            params.Amount,
		"PartyA":            params.Phone,
		"PartyB":            c.shortCode,
		"PhoneNumber":       params.Phone,
		"CallBackURL":       c.callback,
		"AccountReference":  params.AccountReference,
		"TransactionDesc":   params.Description,
	}

	c.log(ctx, "request", "stk_push", map[string]any{
		"phone":     params.Phone,
		"amount":    params.Amount,
		"reference": params.AccountReference,
	})

	var resp STKPushResponse
	if err := c.post(ctx, stkPushPath, body, &resp); err != nil {
		c.log(ctx, "error", "stk_push", map[string]any{"error": err.Error()})
		return nil, err
	}
	if resp.ResponseCode != "0" {
		err := pkgerrors.New(pkgerrors.CodePayment, fmt.Sprintf("stk push rejected with code %s", resp.ResponseCode))
		c.log(ctx, "error", "stk_push", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "stk_push", map[string]any{
		"checkout_request_id": resp.CheckoutRequestID,
	})
	return &resp, nil
}

// STKQuery checks the settlement state of a pushed prompt. While the prompt is
// still on the handset Daraja answers with a processing error; that is mapped
// to Pending=true rather than a failure.
func (c *Client) STKQuery(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	timestamp := c.now().Format("20060102150405")
	body := map[string]any{
		"BusinessShortCode": c.shortCode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	c.log(ctx, "request", "stk_query", map[string]any{
		"checkout_request_id": checkoutRequestID,
	})

	var resp STKQueryResponse
	if err := c.post(ctx, stkQueryPath, body, &resp); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.ErrorCode == errorCodeProcessing {
			return &STKQueryResponse{Pending: true}, nil
		}
		c.log(ctx, "error", "stk_query", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "stk_query", map[string]any{
		"result_code": resp.ResultCode,
		"result_desc": resp.ResultDesc,
	})
	return &resp, nil
}

type apiError struct {
	StatusCode   int
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daraja error %s (%d): %s", e.ErrorCode, e.StatusCode, e.ErrorMessage)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode daraja request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build daraja request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "daraja request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read daraja response")
	}

	if resp.StatusCode >= 400 {
		apiErr := &apiError{StatusCode: resp.StatusCode}
		if unmarshalErr := json.Unmarshal(raw, apiErr); unmarshalErr != nil {
			apiErr.ErrorMessage = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode daraja response")
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+authPath, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build daraja auth request")
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "daraja auth failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("daraja auth returned %d", resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode daraja auth response")
	}
	if body.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "daraja auth returned empty token")
	}

	expiry := 3599 * time.Second
	if secs, parseErr := time.ParseDuration(body.ExpiresIn + "s"); parseErr == nil {
		expiry = secs
	}
	c.accessToken = body.AccessToken
	c.tokenExpiry = c.now().Add(expiry - tokenExpirySlack)
	return c.accessToken, nil
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("mpesa %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("mpesa %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"phone", "passkey", "secret", "token", "password"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
