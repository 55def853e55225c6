package database

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/common/config"
)

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestElasticsearchClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, client.Ping(ctx))
}

func TestNewPostgres_AppliesPoolSettings(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host:           "localhost",
		Port:           5432,
		Database:       "credit",
		User:           "credit",
		SSLMode:        "disable",
		MaxConnections: 7,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 7, client.DB.Stats().MaxOpenConnections)
}

func TestElasticsearchClient_EnsureBankIndex(t *testing.T) {
	tests := []struct {
		name        string
		exists      bool
		wantCreated bool
	}{
		{"creates missing index", false, true},
		{"leaves existing index", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var createBody map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				assert.Equal(t, "/bank-registry", r.URL.Path)
				switch r.Method {
				case http.MethodHead:
					if tt.exists {
						w.WriteHeader(http.StatusOK)
						return
					}
					w.WriteHeader(http.StatusNotFound)
				case http.MethodPut:
					assert.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(`{"acknowledged":true,"index":"bank-registry"}`))
				default:
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
			}))
			defer server.Close()

			client, err := NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
			require.NoError(t, err)

			created, err := client.EnsureBankIndex(context.Background(), "bank-registry")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)

			if tt.wantCreated {
				props := createBody["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
				assert.Equal(t, "keyword", props["roles"].(map[string]interface{})["type"])
				assert.Equal(t, "keyword", props["status"].(map[string]interface{})["type"])
			} else {
				assert.Nil(t, createBody)
			}
		})
	}
}
