// Package apiclient talks to the tokokasir data API over HTTP. Client
// satisfies register.Backend, so a terminal can run against a remote server
// exactly as it runs against an in-process service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tokokasir/internal/domain"
	"tokokasir/internal/store"
)

// ErrUnauthorized is returned for 401 and 403 responses.
var ErrUnauthorized = errors.New("not authorized")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient replaces the underlying client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	c.token = out.AccessToken
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, ref string) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(ref), nil, &out)
	return out, err
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	var out struct {
		Products []domain.Product `json:"products"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/products?"+url.Values{"q": {query}}.Encode(), nil, &out)
	return out.Products, err
}

func (c *Client) GetMember(ctx context.Context, id string) (domain.Member, error) {
	var out domain.Member
	err := c.do(ctx, http.MethodGet, "/api/v1/members/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) ListMembers(ctx context.Context, query string) ([]domain.Member, error) {
	var out struct {
		Members []domain.Member `json:"members"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/members?"+url.Values{"q": {query}}.Encode(), nil, &out)
	return out.Members, err
}

func (c *Client) ListAttendants(ctx context.Context) ([]domain.Attendant, error) {
	var out struct {
		Attendants []domain.Attendant `json:"attendants"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/attendants", nil, &out)
	return out.Attendants, err
}

// SubmitSale posts the sale. A replayed idempotency key comes back with
// Duplicate set rather than as an error.
func (c *Client) SubmitSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	var out domain.Sale
	err := c.do(ctx, http.MethodPost, "/api/v1/sales", req, &out)
	return out, err
}

func (c *Client) CreateSuspendedSale(ctx context.Context, req domain.SuspendRequest) (domain.SuspendedSale, error) {
	var out domain.SuspendedSale
	err := c.do(ctx, http.MethodPost, "/api/v1/suspended-sales", req, &out)
	return out, err
}

func (c *Client) ListSuspendedSales(ctx context.Context) ([]domain.SuspendedSale, error) {
	var out struct {
		SuspendedSales []domain.SuspendedSale `json:"suspended_sales"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/suspended-sales", nil, &out)
	return out.SuspendedSales, err
}

func (c *Client) DeleteSuspendedSale(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/suspended-sales/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SearchReceivables(ctx context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error) {
	query := url.Values{}
	if len(filter.Statuses) > 0 {
		query.Set("status", strings.Join(filter.Statuses, ","))
	}
	if filter.MemberName != "" {
		query.Set("member", filter.MemberName)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	var out struct {
		Receivables []domain.Receivable `json:"receivables"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/receivables?"+query.Encode(), nil, &out)
	return out.Receivables, err
}

func (c *Client) PayReceivable(ctx context.Context, id string, amount int64) (domain.Receivable, error) {
	var out domain.Receivable
	err := c.do(ctx, http.MethodPost, "/api/v1/receivables/"+url.PathEscape(id)+"/payments",
		domain.ReceivablePaymentRequest{Amount: amount}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apiclient: marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

// responseError maps a failed response back onto the store sentinels so
// callers can use errors.Is the same way they do with an in-process backend.
func responseError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrInsufficientStock, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", store.ErrInvalidTransaction, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	default:
		return fmt.Errorf("apiclient: server returned %d: %s", resp.StatusCode, msg)
	}
}
