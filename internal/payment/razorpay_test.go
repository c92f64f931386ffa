package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signFor(secret, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	g := NewRazorpayGateway(RazorpayConfig{KeyID: "rzp_test", KeySecret: "s3cret"})

	sig := signFor("s3cret", "order_abc", "pay_xyz")

	assert.True(t, g.VerifySignature("order_abc", "pay_xyz", sig))
	assert.False(t, g.VerifySignature("order_abc", "pay_other", sig))
	assert.False(t, g.VerifySignature("order_abc", "pay_xyz", sig+"00"))
	assert.False(t, g.VerifySignature("order_abc", "pay_xyz", ""))

	// Signed with a different secret.
	forged := signFor("wrong", "order_abc", "pay_xyz")
	assert.False(t, g.VerifySignature("order_abc", "pay_xyz", forged))
}

func TestCreateIntent(t *testing.T) {
	var got struct {
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Receipt  string            `json:"receipt"`
		Notes    map[string]string `json:"notes"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "s3cret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "order_abc123"})
	}))
	defer srv.Close()

	g := NewRazorpayGateway(RazorpayConfig{
		KeyID:     "rzp_test",
		KeySecret: "s3cret",
		BaseURL:   srv.URL,
	})

	id, err := g.CreateIntent(context.Background(), CreateIntentRequest{
		AmountMinor: 94400,
		Currency:    "INR",
		ReceiptID:   "ord-1",
		Notes:       map[string]string{"order_id": "ord-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "order_abc123", id)
	assert.Equal(t, int64(94400), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "ord-1", got.Receipt)
	assert.Equal(t, "ord-1", got.Notes["order_id"])
}

func TestCreateIntent_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer srv.Close()

	g := NewRazorpayGateway(RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})

	_, err := g.CreateIntent(context.Background(), CreateIntentRequest{AmountMinor: 1, Currency: "INR"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.NotContains(t, err.Error(), "amount too small", "gateway internals stay private")
}

func TestCreateIntent_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	g := NewRazorpayGateway(RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})

	_, err := g.CreateIntent(context.Background(), CreateIntentRequest{AmountMinor: 100, Currency: "INR"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty intent id")
}
