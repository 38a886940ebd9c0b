// Package metadata looks up bibliographic data by ISBN and fills gaps in catalog records.
package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/pkg/circuit_breaker"
)

var ErrNotFound = errors.New("metadata: isbn not found")

type Config struct {
	Enabled   bool          `envconfig:"METADATA_ENABLED" default:"true"`
	BaseURL   string        `envconfig:"METADATA_BASE_URL" default:"https://openlibrary.org"`
	Timeout   time.Duration `envconfig:"METADATA_TIMEOUT" default:"5s"`
	QueueSize int           `envconfig:"METADATA_QUEUE_SIZE" default:"64"`
}

type Lookuper interface {
	Lookup(ctx context.Context, isbn string) (model.BookMetadata, error)
}

type Client struct {
	log     *zap.Logger
	client  *http.Client
	baseURL string
	cb      circuit_breaker.CircuitBreaker
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		log:     log.Named("metadata"),
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cb:      circuit_breaker.New(20, 30*time.Second, 0.5, 2),
	}
}

type openLibraryBook struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Cover struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
}

func (b openLibraryBook) metadata() model.BookMetadata {
	meta := model.BookMetadata{Title: b.Title}
	if len(b.Authors) > 0 {
		meta.Author = b.Authors[0].Name
	}
	for _, cover := range []string{b.Cover.Large, b.Cover.Medium, b.Cover.Small} {
		if cover != "" {
			meta.CoverURL = cover
			break
		}
	}
	return meta
}

// Lookup queries the Open Library books API. A missing record is ErrNotFound and does not count
// against the breaker; transport failures and non-200 answers do.
func (c *Client) Lookup(ctx context.Context, isbn string) (model.BookMetadata, error) {
	key := "ISBN:" + isbn
	q := url.Values{}
	q.Set("bibkeys", key)
	q.Set("format", "json")
	q.Set("jscmd", "data")
	u := fmt.Sprintf("%s/api/books?%s", c.baseURL, q.Encode())

	var books map[string]openLibraryBook
	err := c.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("metadata: unexpected status %d", resp.StatusCode)
		}
		return jsoniter.NewDecoder(resp.Body).Decode(&books)
	})
	if err != nil {
		c.log.Debug("lookup failed", zap.String("isbn", isbn), zap.Error(err), zap.Stringer("breaker", c.cb.State()))
		return model.BookMetadata{}, errors.Wrap(err, "metadata lookup")
	}

	book, ok := books[key]
	if !ok {
		return model.BookMetadata{}, ErrNotFound
	}
	return book.metadata(), nil
}
