// Package monitor implements a terminal dashboard for a running memvec server.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	memhttp "github.com/fyrsmithlabs/memvec/internal/http"
)

// StatsClient polls the memvec stats endpoint.
type StatsClient struct {
	baseURL string
	client  *http.Client
}

// NewStatsClient creates a client for the server at baseURL.
func NewStatsClient(baseURL string) *StatsClient {
	return &StatsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// Fetch returns the current server stats.
func (c *StatsClient) Fetch(ctx context.Context) (memhttp.StatsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/stats", nil)
	if err != nil {
		return memhttp.StatsResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return memhttp.StatsResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return memhttp.StatsResponse{}, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var stats memhttp.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return memhttp.StatsResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return stats, nil
}

// Sample is a stats response and the time it was taken.
type Sample struct {
	At    time.Time
	Stats memhttp.StatsResponse
}

// Rates are per-minute operation rates between two samples.
type Rates struct {
	AddPerMin    float64
	SearchPerMin float64
	DeletePerMin float64
	ErrorsPerMin float64

	// AvgSearchLatency is the mean search duration in seconds over the
	// interval, 0 when no search ran.
	AvgSearchLatency float64
}

// ComputeRates derives rates from two samples. A counter that went down
// means the server restarted; the current value is then taken as the delta.
func ComputeRates(prev, cur Sample) Rates {
	minutes := cur.At.Sub(prev.At).Minutes()
	if minutes <= 0 {
		return Rates{}
	}

	perMin := func(op string) float64 {
		return delta(prev.Stats.Operations[op].Success+prev.Stats.Operations[op].Error,
			cur.Stats.Operations[op].Success+cur.Stats.Operations[op].Error) / minutes
	}

	var prevErrors, curErrors float64
	for _, s := range prev.Stats.Operations {
		prevErrors += s.Error
	}
	for _, s := range cur.Stats.Operations {
		curErrors += s.Error
	}

	r := Rates{
		AddPerMin:    perMin("add"),
		SearchPerMin: perMin("search"),
		DeletePerMin: perMin("delete"),
		ErrorsPerMin: delta(prevErrors, curErrors) / minutes,
	}

	searches := delta(float64(prev.Stats.SearchCount), float64(cur.Stats.SearchCount))
	if searches > 0 {
		r.AvgSearchLatency = delta(prev.Stats.SearchSeconds, cur.Stats.SearchSeconds) / searches
	}

	return r
}

func delta(prev, cur float64) float64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}
