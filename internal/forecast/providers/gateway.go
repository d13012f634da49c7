// Package providers implements the gateway to the upstream forecast
// backends: one POST per provider group, bounded by a per-call timeout,
// with every remote failure captured into the result instead of raised.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skyroute-io/skyroute/internal/forecast"
)

const maxResponseBytes = 4 << 20

// HTTPGateway calls the real provider-group endpoints.
type HTTPGateway struct {
	endpoints map[string]string
	timeout   time.Duration
	httpCfg   HTTPClientConfig
	breakers  map[string]*gobreaker.CircuitBreaker
}

// NewHTTPGateway builds a gateway for the given group→URL table. Each group
// gets its own circuit breaker so one misbehaving backend cannot open the
// circuit for the others.
func NewHTTPGateway(client *http.Client, endpoints map[string]string, callTimeout time.Duration) *HTTPGateway {
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(endpoints))
	for group := range endpoints {
		breakers[group] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        group,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &HTTPGateway{
		endpoints: endpoints,
		timeout:   callTimeout,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		breakers: breakers,
	}
}

// wireRequest is the upstream request body shared by all provider groups.
type wireRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
	Timestamp   string      `json:"timestamp"`
	Variables   []string    `json:"variables"`
	Timezone    string      `json:"timezone"`
}

// Call performs one provider-group request. The error return is reserved
// for configuration mistakes; remote failures come back in the Result.
func (g *HTTPGateway) Call(ctx context.Context, req forecast.SubRequest) (forecast.Result, error) {
	url, ok := g.endpoints[req.Group]
	if !ok {
		return forecast.Result{}, fmt.Errorf("unknown provider group %q", req.Group)
	}

	res := forecast.Result{Group: req.Group, Variables: req.Variables}

	coords := make([][]float64, len(req.Coordinates))
	for i, c := range req.Coordinates {
		coords[i] = []float64{c.Lat, c.Lon}
	}
	body, err := json.Marshal(wireRequest{
		Coordinates: coords,
		Timestamp:   req.Timestamp,
		Variables:   req.Variables,
		Timezone:    req.Timezone,
	})
	if err != nil {
		res.Err = fmt.Sprintf("failed to encode request: %v", err)
		return res, nil
	}

	buildRequest := func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := doRequestWithResilience(callCtx, g.httpCfg, g.breakers[req.Group], buildRequest)
	if err != nil {
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) {
			res.Err = remoteErrorMessage(statusErr)
		} else {
			res.Err = fmt.Sprintf("request failed: %v", err)
		}
		return res, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		res.Err = fmt.Sprintf("failed to read response: %v", err)
		return res, nil
	}

	payload, err := parsePayload(req.Group, raw)
	if err != nil {
		res.Err = err.Error()
		return res, nil
	}

	res.Success = true
	res.Payload = payload
	return res, nil
}

func readBodyLimited(resp *http.Response) []byte {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return raw
}

// remoteErrorMessage extracts the provider's JSON error field from a
// non-2xx body when present, falling back to the raw status.
func remoteErrorMessage(e *httpStatusError) string {
	var envelope struct {
		Error string `json:"Error"`
	}
	if json.Unmarshal(e.body, &envelope) == nil && envelope.Error != "" {
		return "provider error: " + envelope.Error
	}
	return fmt.Sprintf("HTTP %d: %s", e.status, bytes.TrimSpace(e.body))
}
