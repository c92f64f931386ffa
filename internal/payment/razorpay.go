package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

var _ Gateway = (*RazorpayGateway)(nil)

// RazorpayConfig holds credentials and endpoint for the Razorpay API.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	// BaseURL defaults to the production API when empty.
	BaseURL string
	Timeout time.Duration
}

// RazorpayGateway implements Gateway against the Razorpay Orders API.
type RazorpayGateway struct {
	cfg    RazorpayConfig
	client *http.Client
}

// NewRazorpayGateway creates a gateway client with the given credentials.
func NewRazorpayGateway(cfg RazorpayConfig) *RazorpayGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &RazorpayGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateIntent creates a Razorpay order sized to the amount in paise and
// returns its id. The id is what the browser checkout flow and the
// confirmation callback reference.
func (g *RazorpayGateway) CreateIntent(ctx context.Context, req CreateIntentRequest) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.ReceiptID,
		Notes:    req.Notes,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "call gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain for connection reuse; the body may carry gateway internals
		// and is intentionally not surfaced.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if out.ID == "" {
		return "", errors.New("gateway returned empty intent id")
	}

	return out.ID, nil
}

// VerifySignature checks the callback signature: hex HMAC-SHA256 of
// "intentID|paymentID" keyed with the API secret, compared in constant time.
func (g *RazorpayGateway) VerifySignature(intentID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.cfg.KeySecret))
	mac.Write([]byte(intentID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
