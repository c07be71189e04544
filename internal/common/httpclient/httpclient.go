// Package httpclient provides a configurable HTTP client for talking to the
// deskhand REST APIs. It supports bearer-token authentication, handles common
// HTTP operations, and converts server error envelopes into typed errors.
// The package requires a Configurator implementation for server configuration
// and authentication details.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Configurator defines the interface for providing server configuration and
// authentication details.
type Configurator interface {
	GetServerURL() string
	// GetToken returns a bearer token for the request, or "" when the
	// endpoint is unauthenticated.
	GetToken() string
	// GetTimeout returns the per-request timeout. Zero means no timeout.
	GetTimeout() time.Duration
}

// ServerError represents an error envelope returned by deskhand servers.
type ServerError struct {
	Result int    `json:"result"` // result code from server
	Error  string `json:"error"`  // error message from server
}

// HTTPError represents an error response from the server with HTTP status
// code and message.
type HTTPError struct {
	StatusCode int    // HTTP status code of the error
	Message    string // error message or response body
}

// Error implements the error interface for HTTPError.
func (e *HTTPError) Error() string {
	return e.Message
}

// HTTPClient represents a client for making HTTP requests to a REST API
// server. It handles authentication, request building, and response
// processing.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	DisableCertValidation bool // if true, skips SSL certificate validation
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if strings.HasPrefix(config.GetServerURL(), "https://") {
		clientOpts.DisableCertValidation = true
	}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	return NewClientWithOptions(config, clientOpts)
}

// NewClientWithOptions creates a new HTTP client using the provided
// configuration and options.
func NewClientWithOptions(config Configurator, opts ClientOptions) *HTTPClient {
	httpClient := &http.Client{
		Timeout: config.GetTimeout(),
	}

	if opts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
	}
}

// RequestOptions contains options for making HTTP requests.
// All fields are optional except Method and Path.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, DELETE)
	Path        string            // API endpoint path
	QueryParams map[string]string // optional query parameters
	Body        []byte            // optional request body
	Context     context.Context   // optional request context
}

func (c *HTTPClient) newRequest(opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewBuffer(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if token := c.config.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// DoRequest makes an HTTP request with the given options.
// Returns the response body, Location header (if present), and any error
// that occurred.
func (c *HTTPClient) DoRequest(opts RequestOptions) ([]byte, string, error) {
	req, err := c.newRequest(opts)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		var serverErr ServerError
		if err := json.Unmarshal(body, &serverErr); err == nil && serverErr.Error != "" {
			return nil, "", &HTTPError{
				StatusCode: resp.StatusCode,
				Message:    serverErr.Error,
			}
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, "", &HTTPError{
				StatusCode: resp.StatusCode,
				Message:    "server doesn't implement this endpoint",
			}
		}
		return nil, "", &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, resp.Header.Get("Location"), nil
}

// CreateResource creates a new resource using the given JSON data.
// resourceType specifies the API endpoint, data contains the resource JSON,
// and queryParams are optional query parameters.
// Returns the response body, Location header, and any error that occurred.
func (c *HTTPClient) CreateResource(resourceType string, data []byte, queryParams map[string]string) ([]byte, string, error) {
	opts := RequestOptions{
		Method:      http.MethodPost,
		Path:        resourceType,
		QueryParams: queryParams,
		Body:        data,
	}
	return c.DoRequest(opts)
}

// GetResource retrieves a resource using the given resource name.
// Returns the response body and any error that occurred.
func (c *HTTPClient) GetResource(resourceType string, resourceName string, queryParams map[string]string) ([]byte, error) {
	resourceType = strings.Trim(resourceType, "/")
	resourceName = strings.Trim(resourceName, "/")

	opts := RequestOptions{
		Method:      http.MethodGet,
		Path:        resourceType + "/" + resourceName,
		QueryParams: queryParams,
	}
	body, _, err := c.DoRequest(opts)
	return body, err
}

// ListResources lists resources of a specific type.
// Returns the response body and any error that occurred.
func (c *HTTPClient) ListResources(resourceType string, queryParams map[string]string) ([]byte, error) {
	opts := RequestOptions{
		Method:      http.MethodGet,
		Path:        resourceType,
		QueryParams: queryParams,
	}
	body, _, err := c.DoRequest(opts)
	return body, err
}
