package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goAuthClient/apperr"
	"github.com/MrEthical07/goAuthClient/authapi"
)

const maxErrorBody = 64 << 10

// Client issues API calls through an Authenticator and normalizes failures.
type Client struct {
	http *http.Client
	base *url.URL
}

// NewClient returns a Client resolving relative paths against baseURL.
// httpClient should use an Authenticator as its transport.
func NewClient(httpClient *http.Client, baseURL string) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("nil http client")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return &Client{http: httpClient, base: base}, nil
}

// HTTPClient returns the underlying client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Resolve turns path into an absolute URL. Absolute inputs are returned
// unchanged.
func (c *Client) Resolve(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	u := *c.base
	rel, err := url.Parse(path)
	if err != nil {
		u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
		return u.String()
	}
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	u.RawQuery = rel.RawQuery
	return u.String()
}

// Do sends req. A non-2xx response is consumed and returned as an
// *apperr.Error; the caller owns the body of a successful response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, apperr.FromStatus(resp.StatusCode, authapi.ErrorMessage(body))
}

// DoJSON sends in as a JSON body (when non-nil) and decodes the response
// into out (when non-nil), unwrapping a {"data": ...} envelope.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperr.New(apperr.KeyBadRequest, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Resolve(path), body)
	if err != nil {
		return apperr.New(apperr.KeyUnknown, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.New(apperr.KeyNetwork, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := authapi.DecodeEnvelope(data, out); err != nil {
		return apperr.New(apperr.KeyUnknown, err)
	}
	return nil
}
