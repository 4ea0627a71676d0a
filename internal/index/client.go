// Package index mirrors a collected dataset into Elasticsearch so the
// records can be searched with full-text analyzers.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
)

// ErrNoAddresses is returned when no node address is configured.
var ErrNoAddresses = errors.New("elasticsearch: at least one address is required")

// Config configures the client and the indexer.
type Config struct {
	Addresses   []string
	Username    string
	Password    string
	APIKey      string
	IndexPrefix string
	BulkSize    int
	Timeout     time.Duration
	MaxRetries  int
}

const (
	defaultIndexPrefix = "edu"
	defaultBulkSize    = 500
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
)

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.IndexPrefix == "" {
		c.IndexPrefix = defaultIndexPrefix
	}
	if c.BulkSize <= 0 {
		c.BulkSize = defaultBulkSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

// NewClient creates an Elasticsearch client. Addresses without a scheme
// get http://.
func NewClient(cfg Config) (*es.Client, error) {
	cfg.SetDefaults()
	if len(cfg.Addresses) == 0 {
		return nil, ErrNoAddresses
	}

	addrs := make([]string, 0, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		addrs = append(addrs, normalizeURL(a))
	}

	clientCfg := es.Config{
		Addresses:  addrs,
		MaxRetries: cfg.MaxRetries,
		Transport:  &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	}
	switch {
	case cfg.APIKey != "":
		clientCfg.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}

	client, err := es.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return client, nil
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return "http://" + u
	}
	return u
}

// Ping verifies the cluster answers.
func Ping(ctx context.Context, client *es.Client) error {
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), string(body))
	}
	return nil
}
