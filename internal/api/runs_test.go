package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/seantiz/warp/internal/backend/device"
	"github.com/seantiz/warp/internal/model"
)

func postRun(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/runs", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/runs: %v", err)
	}
	return resp
}

func TestCreateRunCompletes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantBackend string
		wantItems   int
	}{
		{"auto device-capable", `{"kernel":"axpy","length":1000,"chunks":10,"alpha":2}`, model.PolicyDevice, 10},
		{"auto host-only", `{"kernel":"fill","length":100,"chunks":4,"value":1}`, model.PolicyParallel, 4},
		{"explicit seq", `{"kernel":"sum","length":500,"policy":"seq"}`, model.PolicySequential, 64},
		{"ordered by cost", `{"kernel":"sum","length":99,"chunks":7,"policy":"parallel","order_by_cost":true}`, model.PolicyParallel, 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			ts := httptest.NewServer(srv.Router())
			defer ts.Close()

			resp := postRun(t, ts.URL, tc.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusAccepted {
				t.Fatalf("status = %d, want 202", resp.StatusCode)
			}

			var run model.Run
			if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(run.ID) != 26 {
				t.Errorf("ID length = %d, want 26", len(run.ID))
			}
			if run.Status != model.StatusPending {
				t.Errorf("Status = %q, want %q", run.Status, model.StatusPending)
			}
			if run.Items != tc.wantItems {
				t.Errorf("Items = %d, want %d", run.Items, tc.wantItems)
			}

			final := waitForRun(t, srv, run.ID)
			if final.Status != model.StatusCompleted {
				t.Fatalf("final status = %q (%s), want completed", final.Status, final.Error)
			}
			if final.Backend != tc.wantBackend {
				t.Errorf("Backend = %q, want %q", final.Backend, tc.wantBackend)
			}
		})
	}
}

func TestCreateRunDefaultsName(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postRun(t, ts.URL, `{"kernel":"sum","length":10}`)
	defer resp.Body.Close()

	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.Name != "sum" {
		t.Errorf("Name = %q, want %q", run.Name, "sum")
	}
	if run.Policy != model.PolicyAuto {
		t.Errorf("Policy = %q, want %q", run.Policy, model.PolicyAuto)
	}
	waitForRun(t, srv, run.ID)
}

func TestCreateRunRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid JSON", "not json", http.StatusBadRequest},
		{"unknown kernel", `{"kernel":"gemm","length":10}`, http.StatusBadRequest},
		{"missing length", `{"kernel":"sum"}`, http.StatusBadRequest},
		{"unknown policy", `{"kernel":"sum","length":10,"policy":"gpu"}`, http.StatusBadRequest},
		{"bad timeout", `{"kernel":"sum","length":10,"timeout_s":0}`, http.StatusBadRequest},
		{"host-only on device", `{"kernel":"fill","length":10,"policy":"device"}`, http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			ts := httptest.NewServer(srv.Router())
			defer ts.Close()

			resp := postRun(t, ts.URL, tc.body)
			defer resp.Body.Close()

			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}

			var errResp map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if errResp["error"] == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestGetRun(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postRun(t, ts.URL, `{"kernel":"axpy","length":64,"name":"warmup"}`)
	var created model.Run
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	waitForRun(t, srv, created.ID)

	resp, err := http.Get(ts.URL + "/v1/runs/" + created.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Name != "warmup" {
		t.Errorf("Name = %q, want %q", run.Name, "warmup")
	}
	if run.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want completed", run.Status)
	}
	if run.DurationMS == nil || run.FinishedAt == nil {
		t.Error("completed run should have duration and finish time")
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/runs/nonexistent")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListRunsPagination(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for i := range 5 {
		resp := postRun(t, ts.URL, fmt.Sprintf(`{"kernel":"sum","length":%d,"policy":"seq"}`, 10+i))
		var run model.Run
		json.NewDecoder(resp.Body).Decode(&run)
		resp.Body.Close()
		waitForRun(t, srv, run.ID)
	}

	tests := []struct {
		query     string
		wantCount int
		wantLimit int
	}{
		{"", 5, defaultListLimit},
		{"?limit=2", 2, 2},
		{"?limit=2&offset=4", 1, 2},
		{"?limit=1000", 5, defaultListLimit},
		{"?offset=-3", 5, defaultListLimit},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/v1/runs" + tc.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()

			var list listRunsResponse
			if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(list.Runs) != tc.wantCount {
				t.Errorf("len(runs) = %d, want %d", len(list.Runs), tc.wantCount)
			}
			if list.Total != 5 {
				t.Errorf("total = %d, want 5", list.Total)
			}
			if list.Limit != tc.wantLimit {
				t.Errorf("limit = %d, want %d", list.Limit, tc.wantLimit)
			}
		})
	}
}

func TestListRunsEmpty(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["runs"]) != "[]" {
		t.Errorf("runs = %s, want []", raw["runs"])
	}
}

func TestCreateRunNamedDeviceBackend(t *testing.T) {
	srv := newTestServer(t)
	srv.registry.Register("gpu0", device.New("gpu0", device.Config{Lanes: 2}, nil))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Host-only kernels are refused up front for any device backend, not only
	// the one registered as "device".
	resp := postRun(t, ts.URL, `{"kernel":"fill","length":10,"policy":"gpu0"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("fill on gpu0: status = %d, want 422", resp.StatusCode)
	}

	resp = postRun(t, ts.URL, `{"kernel":"axpy","length":10,"policy":"gpu0"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("axpy on gpu0: status = %d, want 202", resp.StatusCode)
	}
	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	final := waitForRun(t, srv, run.ID)
	if final.Status != model.StatusCompleted || final.Backend != "gpu0" {
		t.Errorf("run = %s on %q, want completed on gpu0", final.Status, final.Backend)
	}
}

func TestCreateRunCountsSubmissions(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	accepted := runSubmissions.WithLabelValues("sum", model.PolicySequential, outcomeAccepted)
	rejected := runSubmissions.WithLabelValues("fill", model.PolicyDevice, outcomeRejected)
	unknown := runSubmissions.WithLabelValues("unknown", "unknown", outcomeRejected)
	beforeAccepted := testutil.ToFloat64(accepted)
	beforeRejected := testutil.ToFloat64(rejected)
	beforeUnknown := testutil.ToFloat64(unknown)

	resp := postRun(t, ts.URL, `{"kernel":"sum","length":10,"policy":"seq"}`)
	var run model.Run
	json.NewDecoder(resp.Body).Decode(&run)
	resp.Body.Close()
	waitForRun(t, srv, run.ID)

	postRun(t, ts.URL, `{"kernel":"fill","length":10,"policy":"device"}`).Body.Close()
	postRun(t, ts.URL, `{"kernel":"gemm","length":10,"policy":"tpu"}`).Body.Close()

	if got := testutil.ToFloat64(accepted) - beforeAccepted; got != 1 {
		t.Errorf("accepted delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rejected) - beforeRejected; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(unknown) - beforeUnknown; got != 1 {
		t.Errorf("unknown delta = %v, want 1", got)
	}
}
