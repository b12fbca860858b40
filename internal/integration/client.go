// Package integration talks to the supplier's ordering API. Order
// placement is not live yet: CreateOrder and GetOrderStatus return
// placeholder responses with the final shape so the callers can be wired
// end to end before the account is provisioned.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dbcstock/internal/config"
)

const maxAttempts = 5

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type StockInfo struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Warehouse string `json:"warehouse"`
}

type OrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Mock    bool   `json:"mock"`
}

type OrderStatus struct {
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Tracking string `json:"tracking"`
	Mock     bool   `json:"mock"`
}

type WebhookResult struct {
	Status string `json:"status"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SupplierTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.SupplierRateLimitRPS),
	}
}

// CheckStock asks the supplier for the live quantity of one identifier.
func (c *Client) CheckStock(ctx context.Context, sku string) (StockInfo, error) {
	body, err := c.fetchJSON(ctx, "stock/"+url.PathEscape(sku), nil)
	if err != nil {
		return StockInfo{}, err
	}
	var info StockInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return StockInfo{}, err
	}
	return info, nil
}

// CreateOrder will place an order once the account is live. Until then
// it returns a placeholder so downstream order handling can be exercised.
// TODO(foxway): switch to POST /orders when API credentials arrive.
func (c *Client) CreateOrder(ctx context.Context, lines map[string]int) (OrderResult, error) {
	if len(lines) == 0 {
		return OrderResult{}, errors.New("order has no lines")
	}
	return OrderResult{
		OrderID: fmt.Sprintf("MOCK-%05d", rand.Intn(100000)),
		Status:  "pending",
		Mock:    true,
	}, nil
}

// GetOrderStatus mirrors CreateOrder: placeholder until the API is live.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return OrderStatus{}, errors.New("missing order id")
	}
	return OrderStatus{
		OrderID:  orderID,
		Status:   "processing",
		Tracking: "",
		Mock:     true,
	}, nil
}

// DispatchWebhook routes a supplier event by type. Unknown event types
// are acknowledged, not failed, so the supplier never sees a 4xx for an
// event added on their side first.
func (c *Client) DispatchWebhook(eventType string, payload json.RawMessage) (WebhookResult, error) {
	switch eventType {
	case "stock.updated":
		return WebhookResult{Status: "stock_update_received"}, nil
	case "order.status_changed":
		return WebhookResult{Status: "order_status_received"}, nil
	case "price.changed":
		return WebhookResult{Status: "price_change_received"}, nil
	default:
		return WebhookResult{Status: "ignored"}, nil
	}
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.SupplierAPIKey) == "" {
		return nil, errors.New("missing SUPPLIER_API_KEY")
	}

	baseURL := strings.TrimRight(c.cfg.SupplierAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.SupplierAPIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("supplier api status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("supplier api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return body, nil
	}

	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
