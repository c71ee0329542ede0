package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/ratebook/internal/domain/model"
)

// submit outcomes.
const (
	resultCreated = "created"
	resultUpdated = "updated"
	resultFailed  = "failed"
)

// client issues ratebook API requests for one domain.
type client struct {
	http    *http.Client
	baseURL string
	domain  model.Domain
}

func newClient(cfg Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		domain:  cfg.Domain,
	}
}

func (c *client) do(ctx context.Context, method, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+target, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// health checks GET /healthz.
func (c *client) health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// put sends one rating with PUT and classifies the response.
func (c *client) put(ctx context.Context, r model.Rating) string {
	target := "/api/" + c.domain.ItemsPath + "/" + url.PathEscape(r.Item) + "/" + url.PathEscape(r.Owner) +
		"?rating=" + strconv.Itoa(r.Value)
	status, _, err := c.do(ctx, http.MethodPut, target)
	switch {
	case err != nil:
		return resultFailed
	case status == http.StatusCreated:
		return resultCreated
	case status == http.StatusOK:
		return resultUpdated
	default:
		return resultFailed
	}
}

// ownerRatings fetches item -> rating for owner.
func (c *client) ownerRatings(ctx context.Context, owner string) (map[string]int, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/"+c.domain.OwnersPath+"/"+url.PathEscape(owner))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return map[string]int{}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", status, owner)
	}
	var out map[string]int
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode ratings for %s: %w", owner, err)
	}
	return out, nil
}
