package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"creator_chat/internal/domain"
)

// CatalogClient mints private products in the external product catalog.
type CatalogClient interface {
	CreatePrivateProduct(ctx context.Context, product domain.PrivateProduct) (int64, error)
}

type httpCatalogClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewCatalogClient(baseURL, apiKey string, timeout time.Duration) CatalogClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpCatalogClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type createPrivateProductRequest struct {
	domain.PrivateProduct
	Visibility string `json:"visibility"`
}

type createPrivateProductResponse struct {
	ID int64 `json:"id"`
}

func (c *httpCatalogClient) CreatePrivateProduct(ctx context.Context, product domain.PrivateProduct) (int64, error) {
	body, err := json.Marshal(createPrivateProductRequest{PrivateProduct: product, Visibility: "private"})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/products/private", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("catalog service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response createPrivateProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.ID <= 0 {
		return 0, fmt.Errorf("catalog service returned invalid product id %d", response.ID)
	}

	return response.ID, nil
}
