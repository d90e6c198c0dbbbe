package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Auth carries the per-request credentials: the bearer token from the
// session's token set and the tenant every accounting call is scoped to.
type Auth struct {
	AccessToken string
	TenantID    string
}

// APIError is a non-2xx response from the API, carrying the raw body so
// callers can surface the platform's own validation messages.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("xero: status %d: %s", e.StatusCode, body)
}

// Client wraps interactions with the Xero accounting API.
type Client struct {
	baseURL        string
	connectionsURL string
	httpClient     *http.Client
	validate       *validator.Validate
}

// NewClient constructs a new client. baseURL points at the accounting API
// root, connectionsURL at the tenant connections endpoint.
func NewClient(baseURL, connectionsURL string) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		connectionsURL: connectionsURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		validate: validator.New(),
	}
}

// Connections lists the tenants the token is authorised for. The endpoint
// orders connections most recent first; callers rely on that ordering when
// picking the active tenant.
func (c *Client) Connections(ctx context.Context, accessToken string) ([]Connection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.connectionsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xero: list connections: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, c.apiError(resp)
	}
	var connections []Connection
	if err := json.NewDecoder(resp.Body).Decode(&connections); err != nil {
		return nil, fmt.Errorf("xero: decode connections: %w", err)
	}
	return connections, nil
}

// CreateItems creates catalog items.
func (c *Client) CreateItems(ctx context.Context, auth Auth, items []Item) (*ItemsResponse, error) {
	for i := range items {
		if err := c.validate.Struct(items[i]); err != nil {
			return nil, fmt.Errorf("xero: item %q: %w", items[i].Name, err)
		}
	}
	var out ItemsResponse
	if err := c.do(ctx, auth, http.MethodPut, "/Items", ItemsResponse{Items: items}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateContacts creates contacts.
func (c *Client) CreateContacts(ctx context.Context, auth Auth, contacts []Contact) (*ContactsResponse, error) {
	for i := range contacts {
		if err := c.validate.Struct(contacts[i]); err != nil {
			return nil, fmt.Errorf("xero: contact %q: %w", contacts[i].Name, err)
		}
	}
	var out ContactsResponse
	if err := c.do(ctx, auth, http.MethodPut, "/Contacts", ContactsResponse{Contacts: contacts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvoices creates invoices.
func (c *Client) CreateInvoices(ctx context.Context, auth Auth, invoices []Invoice) (*InvoicesResponse, error) {
	for i := range invoices {
		if err := c.validate.Struct(invoices[i]); err != nil {
			return nil, fmt.Errorf("xero: invoice: %w", err)
		}
	}
	var out InvoicesResponse
	if err := c.do(ctx, auth, http.MethodPut, "/Invoices", InvoicesResponse{Invoices: invoices}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAccount creates a single chart-of-accounts entry.
func (c *Client) CreateAccount(ctx context.Context, auth Auth, account Account) (*AccountsResponse, error) {
	if err := c.validate.Struct(account); err != nil {
		return nil, fmt.Errorf("xero: account %q: %w", account.Name, err)
	}
	var out AccountsResponse
	if err := c.do(ctx, auth, http.MethodPut, "/Accounts", account, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayments creates payments.
func (c *Client) CreatePayments(ctx context.Context, auth Auth, payments []Payment) (*PaymentsResponse, error) {
	for i := range payments {
		if err := c.validate.Struct(payments[i]); err != nil {
			return nil, fmt.Errorf("xero: payment: %w", err)
		}
	}
	var out PaymentsResponse
	if err := c.do(ctx, auth, http.MethodPut, "/Payments", PaymentsResponse{Payments: payments}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContacts lists contacts for the tenant.
func (c *Client) GetContacts(ctx context.Context, auth Auth) (*ContactsResponse, error) {
	var out ContactsResponse
	if err := c.do(ctx, auth, http.MethodGet, "/Contacts", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccounts lists accounts, optionally filtered by a where clause.
func (c *Client) GetAccounts(ctx context.Context, auth Auth, where string) (*AccountsResponse, error) {
	path := "/Accounts"
	if where != "" {
		path += "?where=" + url.QueryEscape(where)
	}
	var out AccountsResponse
	if err := c.do(ctx, auth, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrganisations fetches the tenant's organisation record.
func (c *Client) GetOrganisations(ctx context.Context, auth Auth) (*OrganisationsResponse, error) {
	var out OrganisationsResponse
	if err := c.do(ctx, auth, http.MethodGet, "/Organisations", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, auth Auth, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("xero: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth.TenantID != "" {
		req.Header.Set("Xero-Tenant-Id", auth.TenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xero: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("xero: decode response: %w", err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
}
