package providers

import (
	"context"
	"strings"
	"time"

	"github.com/skyroute-io/skyroute/internal/common"
	"github.com/skyroute-io/skyroute/internal/forecast"
)

// MockGateway synthesizes deterministic per-variable values so the rest of
// the pipeline can run without network I/O. Delays and Fail let tests shape
// latency and failure per group.
type MockGateway struct {
	Delays map[string]time.Duration
	Fail   map[string]string
}

// NewMockGateway returns a mock with no delays and no failures.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Call(ctx context.Context, req forecast.SubRequest) (forecast.Result, error) {
	if d, ok := m.Delays[req.Group]; ok && d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return forecast.Result{
				Group:     req.Group,
				Variables: req.Variables,
				Err:       ctx.Err().Error(),
			}, nil
		case <-timer.C:
		}
	}

	if msg, ok := m.Fail[req.Group]; ok {
		return forecast.Result{
			Group:     req.Group,
			Variables: req.Variables,
			Err:       msg,
		}, nil
	}

	keyed := make(map[string]forecast.Record, len(req.Coordinates))
	for i, c := range req.Coordinates {
		rec := make(forecast.Record, len(req.Variables))
		for _, v := range req.Variables {
			rec[v] = MockValue(v, i)
		}
		keyed[c.Key()] = rec
	}

	return forecast.Result{
		Group:     req.Group,
		Variables: req.Variables,
		Success:   true,
		Payload:   forecast.Payload{Keyed: keyed},
	}, nil
}

// MockValue derives a plausible value from the variable's name and the
// location's index in the request, so repeated calls are identical.
func MockValue(name string, index int) float64 {
	fi := float64(index)
	lower := strings.ToLower(name)
	switch {
	case common.HasAny(lower, "temp"):
		return 298.15 + fi*2 // Kelvin
	case common.HasAny(lower, "wind"):
		return 5.5 + fi*0.5
	case common.HasAny(lower, "humidity"):
		return 65.0 + fi*2
	case common.HasAny(lower, "pressure"):
		return 101325 + fi*100
	case common.HasAny(lower, "precipitation"):
		return 0.5 + fi*0.1
	case common.HasAny(lower, "ghi"):
		return 800 + fi*50
	case common.HasAny(lower, "albedo"):
		return 0.15 + fi*0.01
	default:
		return 0.8 + fi*0.1
	}
}
