package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"opportunity-workers/internal/common/config"
)

type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	return newElasticsearch(elasticsearch.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
}

func newElasticsearch(esCfg elasticsearch.Config) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

type indexResponse struct {
	ID      string `json:"_id"`
	Result  string `json:"result"`
	Version int64  `json:"_version"`
}

// IndexDocument stores doc under id, replacing any previous version, and
// returns the resulting document version.
func (c *ElasticsearchClient) IndexDocument(ctx context.Context, index, id string, doc interface{}) (int64, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}

	res, err := c.Client.Index(index, bytes.NewReader(body),
		c.Client.Index.WithContext(ctx),
		c.Client.Index.WithDocumentID(id),
		c.Client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return 0, fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return 0, fmt.Errorf("index %s error: %s: %s", index, res.Status(), bytes.TrimSpace(msg))
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("index %s unexpected status: %s", index, res.Status())
	}

	var parsed indexResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode index response: %w", err)
	}
	return parsed.Version, nil
}
