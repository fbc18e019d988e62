package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestES(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := newElasticsearch(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchClient_IndexDocument(t *testing.T) {
	var gotPath, gotRefresh string
	var gotBody map[string]interface{}

	client := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRefresh = r.URL.Query().Get("refresh")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"opp-1","result":"created","_version":1}`))
	})

	version, err := client.IndexDocument(context.Background(), "opportunity-analyses", "opp-1",
		map[string]string{"predictedArr": "$1,000"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), version)
	assert.Equal(t, "/opportunity-analyses/_doc/opp-1", gotPath)
	assert.Equal(t, "wait_for", gotRefresh)
	assert.Equal(t, "$1,000", gotBody["predictedArr"])
}

func TestElasticsearchClient_IndexDocument_Error(t *testing.T) {
	client := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"}}`))
	})

	_, err := client.IndexDocument(context.Background(), "opportunity-analyses", "opp-1", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestElasticsearchClient_Ping(t *testing.T) {
	client := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, client.Ping(context.Background()))

	down := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.Error(t, down.Ping(context.Background()))
}
