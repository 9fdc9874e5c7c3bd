package obp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/repository"
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %d", ErrUnexpectedStatus, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// ScannedAPIVersion is one entry of the API versions listing.
type ScannedAPIVersion struct {
	URLPrefix       string `json:"urlPrefix"`
	APIStandard     string `json:"apiStandard"`
	APIShortVersion string `json:"apiShortVersion"`
	APIVersion      string `json:"API_VERSION"`
}

// Key is the version identifier used in resource doc requests, e.g. "OBPv5.1.0".
func (v ScannedAPIVersion) Key() string {
	return strings.ToUpper(v.APIStandard) + v.APIVersion
}

type scannedAPIVersions struct {
	Versions []ScannedAPIVersion `json:"scanned_api_versions"`
}

// Client talks to an OBP API instance. It implements repository.Source,
// repository.GlossarySource and repository.CollectionsSource.
type Client struct {
	host       string
	version    string
	token      string
	connectors []string
	http       *http.Client
}

type Option func(*Client)

// WithToken sets the DirectLogin token used for user-scoped calls.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithConnectors sets the connectors whose message docs are fetched.
func WithConnectors(connectors ...string) Option {
	return func(c *Client) {
		c.connectors = connectors
	}
}

// NewClient creates a client for host, issuing calls against API version.
func NewClient(host, version string, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, errors.New("api host is required")
	}
	if _, err := url.ParseRequestURI(host); err != nil {
		return nil, fmt.Errorf("invalid api host: %w", err)
	}
	if version == "" {
		return nil, errors.New("api version is required")
	}
	c := &Client{
		host:    strings.TrimRight(host, "/"),
		version: version,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Versions lists the API versions the server exposes.
func (c *Client) Versions(ctx context.Context) ([]ScannedAPIVersion, error) {
	var out scannedAPIVersions
	if err := c.getJSON(ctx, c.path("api", "versions"), &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// ResourceDocs fetches the resource docs of every scanned version and
// returns them as one snapshot payload. Versions that fail are skipped;
// it fails only if no version could be fetched.
func (c *Client) ResourceDocs(ctx context.Context) ([]byte, error) {
	versions, err := c.Versions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list api versions: %w", err)
	}

	snapshot := repository.ResourceDocsSnapshot{}
	var lastErr error
	for _, v := range versions {
		var payload repository.ResourceDocsPayload
		if err := c.getJSON(ctx, c.path("resource-docs", v.Key(), "obp"), &payload); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WithComponent("obp").Warnf("resource docs for %s unavailable: %v", v.Key(), err)
			lastErr = err
			continue
		}
		snapshot[v.Key()] = payload
	}
	if len(snapshot) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no api versions listed")
		}
		return nil, fmt.Errorf("fetch resource docs: %w", lastErr)
	}
	return repository.Encode(snapshot)
}

// MessageDocs fetches the message docs of every configured connector.
func (c *Client) MessageDocs(ctx context.Context) ([]byte, error) {
	if len(c.connectors) == 0 {
		return nil, errors.New("no connectors configured")
	}
	snapshot := repository.MessageDocsSnapshot{}
	for _, connector := range c.connectors {
		var payload repository.MessageDocsPayload
		if err := c.getJSON(ctx, c.path("message-docs", connector), &payload); err != nil {
			return nil, fmt.Errorf("fetch message docs for %s: %w", connector, err)
		}
		snapshot[connector] = payload
	}
	return repository.Encode(snapshot)
}

func (c *Client) Glossary(ctx context.Context) (*repository.Glossary, error) {
	var out repository.Glossary
	if err := c.getJSON(ctx, c.path("api", "glossary"), &out); err != nil {
		return nil, fmt.Errorf("fetch glossary: %w", err)
	}
	return &out, nil
}

// MyAPICollections lists the current user's collections. Without a
// logged-in user (no token, or 401/403) the list is empty.
func (c *Client) MyAPICollections(ctx context.Context) (*repository.APICollections, error) {
	if c.token == "" {
		return &repository.APICollections{}, nil
	}
	var out repository.APICollections
	err := c.getJSON(ctx, c.path("my", "api-collections"), &out)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && (statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
		return &repository.APICollections{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch api collections: %w", err)
	}
	return &out, nil
}

func (c *Client) MyAPICollectionEndpoints(ctx context.Context, name string) (*repository.APICollectionEndpoints, error) {
	var out repository.APICollectionEndpoints
	if err := c.getJSON(ctx, c.path("my", "api-collections", "name", name, "api-collection-endpoints"), &out); err != nil {
		return nil, fmt.Errorf("fetch endpoints of collection %s: %w", name, err)
	}
	return &out, nil
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, 0, len(segments)+2)
	escaped = append(escaped, "obp", c.version)
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("DirectLogin token=%q", c.token))
	}

	logger.WithComponent("obp").Tracef("GET %s", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Path: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
