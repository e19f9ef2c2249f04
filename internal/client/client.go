// Package client provides an HTTP client for the visit-hub REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/provision"
	"github.com/evcraddock/visit-hub/internal/store"
	"github.com/evcraddock/visit-hub/internal/visit"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", http.StatusText(e.Status))
	}
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client is an HTTP client for the visit-hub API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client. token may be empty for anonymous calls.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// LoginResponse is the response from POST /api/auth/login.
type LoginResponse struct {
	Token        string          `json:"token"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	User         account.Agent   `json:"user"`
	Capabilities map[string]bool `json:"capabilities"`
}

// MeResponse is the response from GET /api/auth/me.
type MeResponse struct {
	User         account.Agent   `json:"user"`
	Capabilities map[string]bool `json:"capabilities"`
}

// UserRequest creates or updates an account. Nil fields are left unchanged
// on update.
type UserRequest struct {
	Username *string       `json:"username,omitempty"`
	Email    *string       `json:"email,omitempty"`
	FullName *string       `json:"fullName,omitempty"`
	Role     *account.Role `json:"role,omitempty"`
	IsActive *bool         `json:"isActive,omitempty"`
	Password string        `json:"password,omitempty"`
}

type gatewayResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

type passwordResult struct {
	Success bool   `json:"success"`
	User    string `json:"user"`
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// Login signs in and returns the bearer token and profile.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp LoginResponse
	if err := c.post(ctx, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the current session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/auth/logout", nil, nil)
}

// Me returns the current caller's profile and capabilities.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var resp MeResponse
	if err := c.get(ctx, "/api/auth/me", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListVisits returns all visits, or those matching query.
func (c *Client) ListVisits(ctx context.Context, query string) ([]visit.Visit, error) {
	path := "/api/visits"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var visits []visit.Visit
	if err := c.get(ctx, path, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// GetVisit returns a single visit.
func (c *Client) GetVisit(ctx context.Context, id string) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.get(ctx, "/api/visits/"+url.PathEscape(id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// AddVisit records a visit.
func (c *Client) AddVisit(ctx context.Context, in visit.Input) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.post(ctx, "/api/visits", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVisit applies a partial update to a visit.
func (c *Client) UpdateVisit(ctx context.Context, id string, p visit.Patch) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.put(ctx, "/api/visits/"+url.PathEscape(id), p, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVisit removes a visit and reports whether it existed.
func (c *Client) DeleteVisit(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.doDelete(ctx, "/api/visits/"+url.PathEscape(id), &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// Stats returns statistics over all visits.
func (c *Client) Stats(ctx context.Context) (*visit.Stats, error) {
	var s visit.Stats
	if err := c.get(ctx, "/api/visits/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Export downloads the visit log as csv, json or xlsx.
func (c *Client) Export(ctx context.Context, format, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("format", format)
	if lang != "" {
		q.Set("lang", lang)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/visits/export?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

// Import replaces the visit log with a JSON array and returns the count.
func (c *Client) Import(ctx context.Context, data []byte) (int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/visits/import", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Imported int `json:"imported"`
	}
	if err := c.do(req, &resp); err != nil {
		return 0, err
	}
	return resp.Imported, nil
}

// ClearVisits removes every visit.
func (c *Client) ClearVisits(ctx context.Context) error {
	return c.doDelete(ctx, "/api/visits", nil)
}

// Storage returns the storage usage of the visit log.
func (c *Client) Storage(ctx context.Context) (*store.Info, error) {
	var info store.Info
	if err := c.get(ctx, "/api/storage", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListPurposes returns the purpose vocabulary.
func (c *Client) ListPurposes(ctx context.Context) ([]string, error) {
	var purposes []string
	if err := c.get(ctx, "/api/purposes", &purposes); err != nil {
		return nil, err
	}
	return purposes, nil
}

// AddPurpose adds a purpose and returns the updated vocabulary.
func (c *Client) AddPurpose(ctx context.Context, name string) ([]string, error) {
	var purposes []string
	if err := c.post(ctx, "/api/purposes", map[string]string{"name": name}, &purposes); err != nil {
		return nil, err
	}
	return purposes, nil
}

// RenamePurpose renames a purpose and returns the updated vocabulary.
func (c *Client) RenamePurpose(ctx context.Context, oldName, newName string) ([]string, error) {
	var purposes []string
	body := map[string]string{"old": oldName, "new": newName}
	if err := c.put(ctx, "/api/purposes", body, &purposes); err != nil {
		return nil, err
	}
	return purposes, nil
}

// RemovePurpose removes a purpose and returns the updated vocabulary.
func (c *Client) RemovePurpose(ctx context.Context, name string) ([]string, error) {
	var purposes []string
	if err := c.doDelete(ctx, "/api/purposes?name="+url.QueryEscape(name), &purposes); err != nil {
		return nil, err
	}
	return purposes, nil
}

// ListUsers returns all accounts.
func (c *Client) ListUsers(ctx context.Context) ([]account.Agent, error) {
	var agents []account.Agent
	if err := c.get(ctx, "/api/users", &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// AddUser creates an account.
func (c *Client) AddUser(ctx context.Context, req UserRequest) (*account.Agent, error) {
	var a account.Agent
	if err := c.post(ctx, "/api/users", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateUser updates an account.
func (c *Client) UpdateUser(ctx context.Context, id string, req UserRequest) (*account.Agent, error) {
	var a account.Agent
	if err := c.put(ctx, "/api/users/"+url.PathEscape(id), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteUser removes an account and reports whether it existed.
func (c *Client) DeleteUser(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.doDelete(ctx, "/api/users/"+url.PathEscape(id), &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// AdminCreateUser provisions an account through the gateway and returns its id.
func (c *Client) AdminCreateUser(ctx context.Context, req provision.CreateUserRequest) (string, error) {
	var res gatewayResult
	if err := c.post(ctx, "/admin-create-user", req, &res); err != nil {
		return "", err
	}
	return res.UserID, nil
}

// AdminUpdatePassword resets another account's password through the gateway
// and returns the id of the updated account.
func (c *Client) AdminUpdatePassword(ctx context.Context, req provision.UpdatePasswordRequest) (string, error) {
	var res passwordResult
	if err := c.post(ctx, "/admin-update-password", req, &res); err != nil {
		return "", err
	}
	return res.User, nil
}

// BootstrapAdmin creates an administrator with the shared setup token.
func (c *Client) BootstrapAdmin(ctx context.Context, setupToken string, req provision.BootstrapRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	r, err := c.newRequest(ctx, http.MethodPost, "/bootstrap-admin", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("x-setup-token", setupToken)

	var res gatewayResult
	if err := c.do(r, &res); err != nil {
		return "", err
	}
	return res.UserID, nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, result)
}

// put performs a PUT request with a JSON body and decodes the response.
func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, result)
}

// doDelete performs a DELETE request.
func (c *Client) doDelete(ctx context.Context, path string, result any) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, result any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// do executes a request and decodes a JSON response into result.
func (c *Client) do(req *http.Request, result any) error {
	respBody, err := c.send(req)
	if err != nil {
		return err
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// send executes a request with the auth header and returns the raw body.
// Non-2xx responses become *APIError.
func (c *Client) send(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Message = errResp.Error
		}
		return nil, apiErr
	}
	return respBody, nil
}
