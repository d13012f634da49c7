package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skyroute-io/skyroute/internal/forecast"
)

func subRequest(group string) forecast.SubRequest {
	return forecast.SubRequest{
		Group:       group,
		Coordinates: []forecast.Coordinate{{Lat: 26.85, Lon: 80.95}},
		Variables:   []string{"ambient_temp(K)"},
		Timestamp:   "2030-01-01 12:00:00",
		Timezone:    "Asia/Kolkata",
	}
}

func TestGatewaySuccess(t *testing.T) {
	var gotBody wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"ambient_temp(K)": 298.15}]}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.Client(), map[string]string{"omega": srv.URL}, 5*time.Second)
	res, err := gw.Call(context.Background(), subRequest("omega"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Err)
	}
	if len(res.Payload.Records) != 1 || res.Payload.Records[0]["ambient_temp(K)"] != 298.15 {
		t.Errorf("unexpected payload: %+v", res.Payload)
	}

	// Wire format carries all four fields.
	if len(gotBody.Coordinates) != 1 || gotBody.Timestamp == "" || len(gotBody.Variables) != 1 || gotBody.Timezone == "" {
		t.Errorf("unexpected wire request: %+v", gotBody)
	}
}

func TestGatewayCapturesJSONErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Error":"variables not available for this timestamp"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.Client(), map[string]string{"omega": srv.URL}, 5*time.Second)
	res, err := gw.Call(context.Background(), subRequest("omega"))
	if err != nil {
		t.Fatalf("remote failure leaked as error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Err != "provider error: variables not available for this timestamp" {
		t.Errorf("unexpected error message: %q", res.Err)
	}
}

func TestGatewayCapturesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`this is not json`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.Client(), map[string]string{"nova": srv.URL}, 5*time.Second)
	res, err := gw.Call(context.Background(), subRequest("nova"))
	if err != nil {
		t.Fatalf("remote failure leaked as error: %v", err)
	}
	if res.Success || res.Err == "" {
		t.Errorf("expected parse failure result, got %+v", res)
	}
}

func TestGatewayCapturesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.Client(), map[string]string{"omega": srv.URL}, 50*time.Millisecond)
	res, err := gw.Call(context.Background(), subRequest("omega"))
	if err != nil {
		t.Fatalf("timeout leaked as error: %v", err)
	}
	if res.Success {
		t.Fatal("expected timeout to produce a failure result")
	}
}

func TestGatewayCapturesConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens here anymore

	gw := NewHTTPGateway(&http.Client{}, map[string]string{"omega": url}, 500*time.Millisecond)
	res, err := gw.Call(context.Background(), subRequest("omega"))
	if err != nil {
		t.Fatalf("connection error leaked as error: %v", err)
	}
	if res.Success {
		t.Fatal("expected connection failure result")
	}
}

func TestGatewayUnknownGroupIsConfigError(t *testing.T) {
	gw := NewHTTPGateway(&http.Client{}, map[string]string{"omega": "http://127.0.0.1:0"}, time.Second)
	_, err := gw.Call(context.Background(), subRequest("zeta"))
	if err == nil {
		t.Fatal("expected an error for an unknown group")
	}
}
