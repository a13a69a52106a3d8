// Package catalog queries the campus catalog service for the subjects being
// rated. The catalog owns course and resource metadata; this service only
// needs existence checks and display titles.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campushub/ratings/internal/domain"
)

// ErrNotFound is returned when the catalog has no entry for the subject.
var ErrNotFound = errors.New("catalog: subject not found")

// Entry is the catalog's view of a ratable subject.
type Entry struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	Department *string `json:"department,omitempty"`
	Uploader   *string `json:"uploader,omitempty"`
}

// Client defines the contract for catalog lookups.
type Client interface {
	Lookup(ctx context.Context, kind domain.SubjectKind, id string) (*Entry, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Lookup retrieves the catalog entry for a subject by kind and id.
func (c *HTTPClient) Lookup(ctx context.Context, kind domain.SubjectKind, id string) (*Entry, error) {
	rel := &url.URL{Path: fmt.Sprintf("/catalog/%ss/%s", kind, url.PathEscape(id))}
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var entry Entry
		if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode catalog response: %w", err)
		}
		if entry.ID == "" {
			entry.ID = id
		}
		if entry.Kind == "" {
			entry.Kind = string(kind)
		}
		return &entry, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Printf("catalog: unexpected status %d for %s %q", resp.StatusCode, kind, id)
		return nil, fmt.Errorf("catalog: upstream returned %d", resp.StatusCode)
	}
}
