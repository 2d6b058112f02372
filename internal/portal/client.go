// Package portal speaks the remote contracting portal's form-encoded
// JSON-in-POST protocol: paginated ID searches and per-ID detail
// fetches, with the portal's field-level formats decoded exactly.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

const (
	searchURL = "https://www.base.gov.pt/Base4/pt/resultados/"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"

	apiVersion  = "140.0"
	searchQuery = "tipo=0&tipocontrato=0&pais=0&distrito=0&concelho=0"

	// MaxPageSize matches the portal's page-size behaviour.
	MaxPageSize = 50
)

// Client wraps the shared HTTP client used to talk to the portal.
type Client struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes all requests through the given proxy URL.
func WithProxy(proxyURL *url.URL) Option {
	return func(c *Client) {
		transport := &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		c.http.Transport = transport
	}
}

// WithTimeout overrides the default 60s per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient builds a Client with the portal's stable user agent and a
// 60s default timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{http: &http.Client{Timeout: 60 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage retrieves the page-th window of size contracts under sort,
// returning the portal's reported total hit count and a list of IDs.
func (c *Client) FetchPage(ctx context.Context, sort Sort, page, size int) (PageResult, error) {
	form := url.Values{}
	form.Set("type", "search_contratos")
	form.Set("version", apiVersion)
	form.Set("query", searchQuery)
	form.Set("sort", sort.wireString())
	form.Set("page", strconv.Itoa(page))
	form.Set("size", strconv.Itoa(size))

	var resp searchResponse
	if err := c.sendForm(ctx, form, &resp); err != nil {
		return PageResult{}, fmt.Errorf("portal: fetch page %d: %w", page, err)
	}

	ids := make([]int64, len(resp.Items))
	for i, item := range resp.Items {
		ids[i] = item.ID
	}
	return PageResult{Total: resp.Total, IDs: ids}, nil
}

// FetchDetail retrieves the full record for one contract ID.
func (c *Client) FetchDetail(ctx context.Context, id int64) (models.Contract, error) {
	form := url.Values{}
	form.Set("type", "detail_contratos")
	form.Set("version", apiVersion)
	form.Set("id", strconv.FormatInt(id, 10))

	var raw rawContract
	if err := c.sendForm(ctx, form, &raw); err != nil {
		return models.Contract{}, fmt.Errorf("portal: fetch detail %d: %w", id, err)
	}

	contract, err := raw.toContract()
	if err != nil {
		return models.Contract{}, err
	}
	return contract, nil
}

// sendForm posts form, decodes the response body to a dynamic value
// first (the portal sometimes embeds partial/malformed data), then
// re-marshals and decodes into out; each failure is wrapped with the
// step (transport, JSON decode, typed projection) it happened in.
func (c *Client) sendForm(ctx context.Context, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var dynamic any
	if err := json.NewDecoder(resp.Body).Decode(&dynamic); err != nil {
		return fmt.Errorf("decode response as JSON: %w", err)
	}

	reencoded, err := json.Marshal(dynamic)
	if err != nil {
		return fmt.Errorf("re-encode dynamic response: %w", err)
	}
	if err := json.Unmarshal(reencoded, out); err != nil {
		return fmt.Errorf("project response to typed shape: %w", err)
	}
	return nil
}
