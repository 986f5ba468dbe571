package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPOracle implements Oracle against a REST price/execution service.
type HTTPOracle struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPOracle creates an HTTP oracle with optional proxy support.
func NewHTTPOracle(baseURL, apiKey, proxyURL string) *HTTPOracle {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPOracle{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (o *HTTPOracle) Name() string { return "http" }

// GetPrice fetches the current quote for a pair.
func (o *HTTPOracle) GetPrice(pair string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/v1/price?pair=%s", o.BaseURL, url.QueryEscape(pair))
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetch price: status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	var result struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("decode price: %w", err)
	}
	return result.Price, nil
}

// ExecuteTransfer posts a transfer request and returns the service receipt.
func (o *HTTPOracle) ExecuteTransfer(treq TransferRequest) (Receipt, error) {
	payload := map[string]any{
		"from":      treq.FromAccount,
		"to":        treq.ToAccount,
		"amount":    treq.Amount,
		"reference": treq.Reference,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal transfer: %w", err)
	}
	endpoint := o.BaseURL + "/api/v1/transfer"
	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("execute transfer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Receipt{}, fmt.Errorf("execute transfer: status %d, body: %s: %w", resp.StatusCode, string(respBody), ErrUnavailable)
	}
	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return Receipt{}, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, nil
}
