package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

// Client fetches fully materialized indicator sets from the upstream collector service.
type Client interface {
	FetchIndicators(ctx context.Context, period string) ([]scoring.IndicatorSet, error)
	FetchMunicipality(ctx context.Context, code, period string) (*scoring.IndicatorSet, error)
	FetchCarryoverMedian(ctx context.Context, period string) (*float64, error)
}

type medianResponse struct {
	Period          string   `json:"period"`
	CarryoverMedian *float64 `json:"carryover_median"`
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// errNotFound is internal; callers see (nil, nil) like the store does.
var errNotFound = errors.New("not found")

func (c *HTTPClient) doReq(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("collector %s %s: %d %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func periodQuery(period string) url.Values {
	if period == "" {
		return nil
	}
	return url.Values{"period": []string{period}}
}

func (c *HTTPClient) FetchIndicators(ctx context.Context, period string) ([]scoring.IndicatorSet, error) {
	data, err := c.doReq(ctx, http.MethodGet, "/indicators", periodQuery(period))
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sets []scoring.IndicatorSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("decode indicators: %w", err)
	}
	return sets, nil
}

func (c *HTTPClient) FetchMunicipality(ctx context.Context, code, period string) (*scoring.IndicatorSet, error) {
	data, err := c.doReq(ctx, http.MethodGet, "/indicators/"+url.PathEscape(code), periodQuery(period))
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var set scoring.IndicatorSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode indicators for %s: %w", code, err)
	}
	return &set, nil
}

// FetchCarryoverMedian returns the period-wide carryover median the collector computed, or nil
// when it has none.
func (c *HTTPClient) FetchCarryoverMedian(ctx context.Context, period string) (*float64, error) {
	data, err := c.doReq(ctx, http.MethodGet, "/indicators/median", periodQuery(period))
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp medianResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode median: %w", err)
	}
	return resp.CarryoverMedian, nil
}
