package api

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/framegraph/internal/api/models"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/jobs/store"
	"github.com/smazurov/framegraph/internal/metrics/exporters"
	"github.com/smazurov/framegraph/internal/runner"
)

type testServer struct {
	*httptest.Server
	manager *runner.Manager
	bus     *events.Bus
	dir     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	bus := events.New()
	manager := runner.NewManager(runner.New(runner.Options{Bus: bus}))
	t.Cleanup(manager.StopAll)

	server := NewServer(&Options{
		AuthUsername:      "test",
		AuthPassword:      "test",
		Store:             store.NewTOML(filepath.Join(dir, "jobs.toml")),
		Manager:           manager,
		EventBus:          bus,
		PrometheusHandler: exporters.HTTPHandler(),
	})
	ts := httptest.NewServer(server.mux)
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, manager: manager, bus: bus, dir: dir}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth("test", "test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (ts *testServer) smallJob(id string) models.JobData {
	return models.JobData{
		ID:     id,
		Graph:  "[in] null [out]",
		Frames: 3,
		Video:  models.VideoSourceData{Width: 32, Height: 16},
		Output: filepath.Join(ts.dir, id+".yuv"),
	}
}

func TestHealthWithoutAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request ID header")
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Bearer abc", http.StatusUnauthorized},
		{"wrong password", "Basic " + base64.StdEncoding.EncodeToString([]byte("test:nope")), http.StatusUnauthorized},
		{"valid", "Basic " + base64.StdEncoding.EncodeToString([]byte("test:test")), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/jobs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("GET jobs: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestJobCRUD(t *testing.T) {
	ts := newTestServer(t)
	job := ts.smallJob("crud")

	resp := ts.do(t, http.MethodPost, "/api/jobs", job)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decode[models.JobData](t, resp)
	if created.ID != "crud" || created.CreatedAt.IsZero() {
		t.Errorf("unexpected created job %+v", created)
	}

	if resp := ts.do(t, http.MethodPost, "/api/jobs", job); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", resp.StatusCode)
	}

	job.Frames = 7
	resp = ts.do(t, http.MethodPut, "/api/jobs/crud", job)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	if updated := decode[models.JobData](t, resp); updated.Frames != 7 {
		t.Errorf("expected frames 7 after update, got %d", updated.Frames)
	}

	list := decode[models.JobListData](t, ts.do(t, http.MethodGet, "/api/jobs", nil))
	if list.Count != 1 || list.Jobs[0].ID != "crud" {
		t.Errorf("unexpected job list %+v", list)
	}

	if resp := ts.do(t, http.MethodDelete, "/api/jobs/crud", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodGet, "/api/jobs/crud", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateJobRejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(*models.JobData)
		want   int
	}{
		{"missing id", func(j *models.JobData) { j.ID = "" }, http.StatusBadRequest},
		{"bad pixel format", func(j *models.JobData) { j.Video.PixelFormat = "bogus" }, http.StatusBadRequest},
		{"graph does not compile", func(j *models.JobData) { j.Graph = "[in] nosuch [out]" }, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := ts.smallJob("rejected")
			tt.mutate(&job)
			if resp := ts.do(t, http.MethodPost, "/api/jobs", job); resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestRunLifecycle(t *testing.T) {
	ts := newTestServer(t)
	if resp := ts.do(t, http.MethodPost, "/api/jobs", ts.smallJob("runme")); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	if resp := ts.do(t, http.MethodGet, "/api/jobs/runme/run", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status before run: expected 404, got %d", resp.StatusCode)
	}

	resp := ts.do(t, http.MethodPost, "/api/jobs/runme/run", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start: expected 202, got %d", resp.StatusCode)
	}
	ts.manager.Wait("runme")

	run := decode[models.RunData](t, ts.do(t, http.MethodGet, "/api/jobs/runme/run", nil))
	if run.State != string(runner.RunFinished) || run.Reason != "output_eof" {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(run.Outputs) != 1 || run.Outputs[0].Frames != 3 {
		t.Errorf("unexpected outputs %+v", run.Outputs)
	}
	if run.FinishedAt == nil {
		t.Error("expected finish time")
	}

	if resp := ts.do(t, http.MethodDelete, "/api/jobs/runme/run", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("stop finished run: expected 409, got %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/jobs/missing/run", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("start unknown job: expected 404, got %d", resp.StatusCode)
	}
}

func TestStopRunningJob(t *testing.T) {
	ts := newTestServer(t)
	job := ts.smallJob("endless")
	job.Frames = 1 << 20
	ts.do(t, http.MethodPost, "/api/jobs", job)

	if resp := ts.do(t, http.MethodPost, "/api/jobs/endless/run", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start: expected 202, got %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/jobs/endless/run", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("second start: expected 409, got %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodDelete, "/api/jobs/endless", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("delete running job: expected 409, got %d", resp.StatusCode)
	}

	resp := ts.do(t, http.MethodDelete, "/api/jobs/endless/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	if run := decode[models.RunData](t, resp); run.State != string(runner.RunStopped) {
		t.Errorf("expected stopped, got %s", run.State)
	}
}

func TestListFilters(t *testing.T) {
	ts := newTestServer(t)

	list := decode[models.FilterListData](t, ts.do(t, http.MethodGet, "/api/filters", nil))
	found := false
	for _, f := range list.Filters {
		if f.Name == "overlay" {
			found = strings.Join(f.Options, ":") == "x:y:eof_action:shortest"
		}
	}
	if !found || list.Count != len(list.Filters) {
		t.Errorf("overlay missing or malformed in %+v", list)
	}
}

func TestValidateGraph(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		graph    string
		valid    bool
		pads     int
		position int
	}{
		{"overlay", "[in1] scale=iw/4:ih/4 [s]; [in2][s] overlay [out]", true, 3, -1},
		{"unterminated label", "[in] null [out", false, 0, 10},
		{"unknown filter", "[in] nosuch [out]", false, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]string{"graph": tt.graph}
			resp := ts.do(t, http.MethodPost, "/api/graphs/validate", body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			got := decode[models.GraphValidateData](t, resp)
			if got.Valid != tt.valid || len(got.Pads) != tt.pads {
				t.Errorf("unexpected result %+v", got)
			}
			if !tt.valid && got.Error == "" {
				t.Error("expected an error message")
			}
			if tt.position >= 0 && got.Position != tt.position {
				t.Errorf("expected position %d, got %d", tt.position, got.Position)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)

	credentials := base64.StdEncoding.EncodeToString([]byte("test:test"))
	resp, err := http.Get(fmt.Sprintf("%s/api/events?auth=%s&graph_id=g1", ts.URL, credentials))
	if err != nil {
		t.Fatalf("connect SSE: %v", err)
	}
	defer resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	messages := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				messages <- line
			}
		}
	}()

	next := func() string {
		t.Helper()
		select {
		case msg := <-messages:
			return msg
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for SSE message")
		}
		return ""
	}

	if msg := next(); !strings.Contains(msg, "event stream connected") {
		t.Fatalf("expected connection message, got %s", msg)
	}

	// other graphs are filtered out
	ts.bus.Publish(events.PumpFinishedEvent{GraphID: "g2", Reason: "canceled"})
	ts.bus.Publish(events.PumpFinishedEvent{GraphID: "g1", Reason: "output_eof"})

	msg := next()
	if !strings.Contains(msg, `"graph_id":"g1"`) || !strings.Contains(msg, "output_eof") {
		t.Errorf("unexpected event %s", msg)
	}
}
