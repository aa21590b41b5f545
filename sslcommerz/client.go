// Package sslcommerz is a thin client for the two SSLCommerz endpoints
// checkout needs: creating a hosted payment session and validating a
// transaction reported over IPN. The gateway owns the wire protocol and
// the payment pages.
package sslcommerz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sajidkabir/storefront/config"
	"github.com/shopspring/decimal"
)

const (
	sandboxURL = "https://sandbox.sslcommerz.com"
	liveURL    = "https://securepay.sslcommerz.com"
)

type Client struct {
	StoreID    string
	StorePass  string
	BaseURL    string
	HTTPClient *http.Client
}

func New(cfg config.SSLCommerz) *Client {
	base := liveURL
	if cfg.Sandbox {
		base = sandboxURL
	}

	return &Client{
		StoreID:    cfg.StoreID,
		StorePass:  cfg.StorePass,
		BaseURL:    base,
		HTTPClient: http.DefaultClient,
	}
}

type SessionRequest struct {
	TranID        string
	Amount        decimal.Decimal
	Currency      string
	ProductName   string
	NumItems      int
	CustomerName  string
	CustomerEmail string
	SuccessURL    string
	FailURL       string
	CancelURL     string
	IPNURL        string
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// CreateSession opens a hosted payment session and returns the gateway
// page URL the customer must be redirected to.
func (c *Client) CreateSession(ctx context.Context, sr SessionRequest) (string, error) {
	form := url.Values{}
	form.Set("store_id", c.StoreID)
	form.Set("store_passwd", c.StorePass)
	form.Set("tran_id", sr.TranID)
	form.Set("total_amount", sr.Amount.StringFixed(2))
	form.Set("currency", sr.Currency)
	form.Set("product_name", sr.ProductName)
	form.Set("product_category", "Mixed")
	form.Set("product_profile", "general")
	form.Set("num_of_item", fmt.Sprint(sr.NumItems))
	form.Set("shipping_method", "Courier")
	form.Set("cus_name", sr.CustomerName)
	form.Set("cus_email", sr.CustomerEmail)
	form.Set("success_url", sr.SuccessURL)
	form.Set("fail_url", sr.FailURL)
	form.Set("cancel_url", sr.CancelURL)
	form.Set("ipn_url", sr.IPNURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/gwprocess/v4/api.php", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %s", resp.Status)
	}

	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return "", fmt.Errorf("decoding gateway response: %w", err)
	}

	if sess.Status != "SUCCESS" {
		return "", fmt.Errorf("gateway refused session: %s", sess.FailedReason)
	}

	return sess.GatewayPageURL, nil
}

type Validation struct {
	Status   string          `json:"status"`
	TranID   string          `json:"tran_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Valid reports whether the gateway vouches for the transaction.
func (v Validation) Valid() bool {
	return v.Status == "VALID" || v.Status == "VALIDATED"
}

// ValidateTransaction confirms an IPN notification against the gateway's
// validator API. IPN payloads are untrusted input until validated here.
func (c *Client) ValidateTransaction(ctx context.Context, valID string) (Validation, error) {
	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", c.StoreID)
	q.Set("store_passwd", c.StorePass)
	q.Set("format", "json")

	u := c.BaseURL + "/validator/api/validationserverAPI.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Validation{}, fmt.Errorf("building validation request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("calling validator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Validation{}, fmt.Errorf("validator returned status %s", resp.Status)
	}

	var v Validation
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Validation{}, fmt.Errorf("decoding validator response: %w", err)
	}

	return v, nil
}
