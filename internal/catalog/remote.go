// Package catalog provides business catalog sources: a reader for a remote
// catalog service and the built-in sample catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/httpclient"
)

// JSONGetter fetches a URL and decodes its JSON body. It is satisfied by
// *httpclient.CircuitBreakerClient.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, dst any) error
}

type businessPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Website     string    `json:"website"`
	CreatedAt   time.Time `json:"created_at"`
}

type listPayload struct {
	Businesses []businessPayload `json:"businesses"`
}

// RemoteCatalog reads businesses from the catalog service over HTTP.
type RemoteCatalog struct {
	client  JSONGetter
	baseURL string
	logger  *slog.Logger
}

// NewRemoteCatalog creates a reader for the catalog service at baseURL.
func NewRemoteCatalog(client JSONGetter, baseURL string, logger *slog.Logger) *RemoteCatalog {
	return &RemoteCatalog{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// NewRemoteCatalogClient builds the retrying, circuit-broken HTTP client used
// for the catalog service.
func NewRemoteCatalogClient(cfg httpclient.Config, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	return httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig("catalog"),
		logger,
	)
}

// List returns every business. Entries with an unknown category are skipped.
func (c *RemoteCatalog) List(ctx context.Context) ([]domain.Business, error) {
	var payload listPayload
	if err := c.client.GetJSON(ctx, c.baseURL+"/api/v1/businesses", &payload); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	out := make([]domain.Business, 0, len(payload.Businesses))
	for _, p := range payload.Businesses {
		b, err := p.toDomain()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping catalog entry",
				slog.String("business_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Get returns one business or a not-found error.
func (c *RemoteCatalog) Get(ctx context.Context, id string) (*domain.Business, error) {
	var payload businessPayload
	if err := c.client.GetJSON(ctx, c.baseURL+"/api/v1/businesses/"+url.PathEscape(id), &payload); err != nil {
		return nil, fmt.Errorf("get catalog business: %w", err)
	}
	b, err := payload.toDomain()
	if err != nil {
		return nil, fmt.Errorf("get catalog business %s: %w", id, err)
	}
	return &b, nil
}

func (p businessPayload) toDomain() (domain.Business, error) {
	if p.ID == "" {
		return domain.Business{}, apperrors.InvalidInput("catalog entry has no id")
	}
	cat, ok := domain.ParseCategory(p.Category)
	if !ok || cat == "" {
		return domain.Business{}, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", p.Category))
	}
	return domain.Business{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    cat,
		Address:     p.Address,
		Phone:       p.Phone,
		Website:     p.Website,
		CreatedAt:   p.CreatedAt.UTC(),
	}, nil
}
