// Package catalog fetches the product list from the backend API and drives
// the load lifecycle of a storefront session.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"phone8/internal/models"
)

// ProductsPath is the catalog endpoint relative to the API base URL.
const ProductsPath = "/api/products"

// DefaultTimeout bounds a single fetch attempt.
const DefaultTimeout = 30 * time.Second

// Client reads the product list over HTTP.
type Client struct {
	http     *http.Client
	endpoint string
	logger   *zap.Logger
}

// NewClient creates a Client for the API at baseURL. A non-positive timeout
// falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(baseURL, "/") + ProductsPath,
		logger:   logger,
	}
}

// Endpoint returns the full URL the client fetches.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch performs one GET of the product list. It returns a *StatusError for
// non-2xx answers, an error wrapping ErrUnreachable when no response was
// received and ctx.Err() when ctx was cancelled.
func (c *Client) Fetch(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: reading body: %w", ErrUnreachable, err)
	}

	products, skipped, err := DecodeProducts(body)
	if err != nil {
		c.logger.Warn("catalog body is not a product list, showing empty catalog",
			zap.String("endpoint", c.endpoint), zap.Error(err))
		return []models.Product{}, nil
	}
	for _, item := range skipped {
		c.logger.Warn("skipping malformed catalog item",
			zap.String("endpoint", c.endpoint), zap.Int("index", item.Index), zap.Error(item.Err))
	}
	return products, nil
}

// DecodeProducts accepts either a bare JSON list of products or an object
// whose "data" field holds the list. Any other JSON value yields an empty
// list. Items that do not decode as a product are left out and reported in
// skipped.
func DecodeProducts(body []byte) (products []models.Product, skipped []ItemError, err error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, nil, err
	}

	products = make([]models.Product, 0, len(items))
	for i, item := range items {
		var p models.Product
		if err := json.Unmarshal(item, &p); err != nil {
			skipped = append(skipped, ItemError{Index: i, Err: err})
			continue
		}
		products = append(products, p)
	}
	return products, skipped, nil
}

func decodeItems(body []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		var raw interface{}
		if json.Unmarshal(body, &raw) == nil {
			if _, isList := raw.([]interface{}); !isList {
				if _, isObject := raw.(map[string]interface{}); !isObject {
					return nil, nil
				}
			}
		}
		return nil, fmt.Errorf("failed to decode product list: %w", err)
	}
	return envelope.Data, nil
}
