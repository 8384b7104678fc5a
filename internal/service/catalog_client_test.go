package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creator_chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogClient_CreatePrivateProduct(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products/private", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, "secret", time.Second)
	id, err := client.CreatePrivateProduct(context.Background(), domain.PrivateProduct{
		CreatorID:  2,
		CustomerID: 1,
		Title:      "Portrait",
		Price:      35,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "private", received["visibility"])
	assert.Equal(t, "Portrait", received["title"])
}

func TestCatalogClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, "", time.Second)
	_, err := client.CreatePrivateProduct(context.Background(), domain.PrivateProduct{Title: "x", Price: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
