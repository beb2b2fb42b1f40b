package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Verifier checks the signature Razorpay hands to the browser after a
// successful hosted-checkout flow.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Signature returns the hex HMAC-SHA256 of "{orderID}|{paymentID}".
func (v *Verifier) Signature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares constant-time; a forged or truncated signature never
// short-circuits early.
func (v *Verifier) Verify(orderID, paymentID, signature string) bool {
	expected := v.Signature(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProviderOrder is the slice of the provider's order object the storefront
// needs to open the checkout widget.
type ProviderOrder struct {
	ID       string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Client creates provider-side orders ahead of the hosted-checkout flow.
type Client struct {
	rz    *razorpay.Client
	keyID string
}

func NewClient(keyID, keySecret string) *Client {
	return &Client{
		rz:    razorpay.NewClient(keyID, keySecret),
		keyID: keyID,
	}
}

func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder registers an order with the provider. amountMinor is in the
// smallest currency unit (paise for INR).
func (c *Client) CreateOrder(amountMinor int64, receipt string, notes map[string]interface{}) (ProviderOrder, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": "INR",
		"receipt":  receipt,
		"notes":    notes,
	}
	body, err := c.rz.Order.Create(data, nil)
	if err != nil {
		return ProviderOrder{}, fmt.Errorf("create provider order: %w", err)
	}

	out := ProviderOrder{Currency: "INR"}
	if id, ok := body["id"].(string); ok {
		out.ID = id
	}
	if amount, ok := body["amount"].(float64); ok {
		out.Amount = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok {
		out.Currency = currency
	}
	if out.ID == "" {
		return ProviderOrder{}, fmt.Errorf("provider order response missing id")
	}
	return out, nil
}
