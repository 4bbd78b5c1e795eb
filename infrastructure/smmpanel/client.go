package smmpanel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// Client speaks the common SMM panel API v2: form POSTs carrying key and action.
type Client struct {
	http   *resty.Client
	url    string
	apiKey string
}

var _ domainPanel.IPanelClient = (*Client)(nil)

func NewClient(url, apiKey string) *Client {
	httpClient := resty.New()
	httpClient.SetTimeout(defaultTimeout)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	httpClient.SetHeader("Accept", "application/json")
	httpClient.OnError(func(req *resty.Request, err error) {
		var respErr *resty.ResponseError
		if errors.As(err, &respErr) {
			logrus.Debugf("[SMM] %s responded %s", req.URL, respErr.Response.Status())
		}
	})
	return &Client{http: httpClient, url: strings.TrimSpace(url), apiKey: apiKey}
}

// Factory adapts NewClient to domainPanel.ClientFactory.
func Factory(url, apiKey string) domainPanel.IPanelClient {
	return NewClient(url, apiKey)
}

// APIError is an {"error": "..."} reply of the panel.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return "panel error: " + e.Message }

func (c *Client) call(ctx context.Context, form map[string]string) ([]byte, error) {
	form["key"] = c.apiKey
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("panel request %s failed: %w", form["action"], err)
	}
	body := resp.Body()
	if resp.IsError() {
		if msg := errorMessage(body); msg != "" {
			return nil, &APIError{Message: msg}
		}
		return nil, fmt.Errorf("panel request %s failed: %s", form["action"], resp.Status())
	}
	if msg := errorMessage(body); msg != "" {
		return nil, &APIError{Message: msg}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}

func (c *Client) Balance(ctx context.Context) (domainPanel.Balance, error) {
	body, err := c.call(ctx, map[string]string{"action": "balance"})
	if err != nil {
		return domainPanel.Balance{}, err
	}
	var raw struct {
		Balance  flexNumber `json:"balance"`
		Currency string     `json:"currency"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domainPanel.Balance{}, fmt.Errorf("unexpected balance response: %w", err)
	}
	return domainPanel.Balance{Balance: float64(raw.Balance), Currency: raw.Currency}, nil
}

type rawStatus struct {
	Charge     flexNumber `json:"charge"`
	StartCount flexNumber `json:"start_count"`
	Status     string     `json:"status"`
	Remains    flexNumber `json:"remains"`
	Currency   string     `json:"currency"`
	Error      string     `json:"error"`
}

func (r rawStatus) toDomain(orderID string) domainPanel.OrderStatus {
	return domainPanel.OrderStatus{
		OrderID:    orderID,
		Status:     r.Status,
		Charge:     float64(r.Charge),
		StartCount: int64(r.StartCount),
		Remains:    int64(r.Remains),
		Currency:   r.Currency,
		Error:      r.Error,
	}
}

func (c *Client) OrderStatus(ctx context.Context, orderIDs []string) ([]domainPanel.OrderStatus, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	if len(orderIDs) == 1 {
		body, err := c.call(ctx, map[string]string{"action": "status", "order": orderIDs[0]})
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return []domainPanel.OrderStatus{{OrderID: orderIDs[0], Error: apiErr.Message}}, nil
			}
			return nil, err
		}
		var raw rawStatus
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unexpected status response: %w", err)
		}
		return []domainPanel.OrderStatus{raw.toDomain(orderIDs[0])}, nil
	}

	body, err := c.call(ctx, map[string]string{"action": "status", "orders": strings.Join(orderIDs, ",")})
	if err != nil {
		return nil, err
	}
	var raw map[string]rawStatus
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unexpected status response: %w", err)
	}
	out := make([]domainPanel.OrderStatus, 0, len(orderIDs))
	for _, id := range orderIDs {
		st, ok := raw[id]
		if !ok {
			out = append(out, domainPanel.OrderStatus{OrderID: id, Error: "order not found"})
			continue
		}
		out = append(out, st.toDomain(id))
	}
	return out, nil
}

func (c *Client) Refill(ctx context.Context, orderIDs []string) ([]domainPanel.ActionResult, error) {
	return c.action(ctx, "refill", orderIDs)
}

func (c *Client) Cancel(ctx context.Context, orderIDs []string) ([]domainPanel.ActionResult, error) {
	return c.action(ctx, "cancel", orderIDs)
}

// action sends refill or cancel for many orders. The reply is a list of
// {"order": id, "<action>": ref | {"error": msg}}.
func (c *Client) action(ctx context.Context, action string, orderIDs []string) ([]domainPanel.ActionResult, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	body, err := c.call(ctx, map[string]string{"action": action, "orders": strings.Join(orderIDs, ",")})
	if err != nil {
		return nil, err
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unexpected %s response: %w", action, err)
	}

	byOrder := make(map[string]domainPanel.ActionResult, len(raw))
	for _, item := range raw {
		id := rawScalar(item["order"])
		res := domainPanel.ActionResult{OrderID: id}
		if msg := errorMessage(item[action]); msg != "" {
			res.Error = msg
		} else {
			res.Ref = rawScalar(item[action])
		}
		byOrder[id] = res
	}

	out := make([]domainPanel.ActionResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		res, ok := byOrder[id]
		if !ok {
			res = domainPanel.ActionResult{OrderID: id, Error: "no response for order"}
		}
		out = append(out, res)
	}
	return out, nil
}

type rawService struct {
	Service  json.RawMessage `json:"service"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Rate     flexNumber      `json:"rate"`
	Min      flexNumber      `json:"min"`
	Max      flexNumber      `json:"max"`
	Refill   bool            `json:"refill"`
	Cancel   bool            `json:"cancel"`
}

// Services fetches the panel catalogue.
func (c *Client) Services(ctx context.Context) ([]domainPanel.Service, error) {
	body, err := c.call(ctx, map[string]string{"action": "services"})
	if err != nil {
		return nil, err
	}
	var raw []rawService
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unexpected services response: %w", err)
	}
	out := make([]domainPanel.Service, 0, len(raw))
	for _, r := range raw {
		out = append(out, domainPanel.Service{
			ID:       rawScalar(r.Service),
			Name:     r.Name,
			Type:     r.Type,
			Category: r.Category,
			Rate:     float64(r.Rate),
			Min:      int64(r.Min),
			Max:      int64(r.Max),
			Refill:   r.Refill,
			Cancel:   r.Cancel,
		})
	}
	return out, nil
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// flexNumber accepts numbers that panels send either quoted or bare.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}
