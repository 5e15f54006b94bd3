package telemetry

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shopsphere/shopctl/pkg/api"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/superAdmin/api/vendors/12/block/":           "/superAdmin/api/vendors/:id/block/",
		"/superAdmin/api/vendors/":                    "/superAdmin/api/vendors/",
		"/superAdmin/api/settle-payment/991/":         "/superAdmin/api/settle-payment/:id/",
		"/superAdmin/api/commission-settings/global/": "/superAdmin/api/commission-settings/global/",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("POST", "/superAdmin/api/vendors/3/block/", 200, "", 20*time.Millisecond)
	m.ObserveRequest("POST", "/superAdmin/api/vendors/4/block/", 200, "", 20*time.Millisecond)
	m.ObserveRequest("GET", "/superAdmin/api/vendors/", 0, api.KindTransport, time.Second)
	m.ObserveLoad("vendors", "ok")
	m.ObserveMutation("vendor", "block", "ok")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/superAdmin/api/vendors/:id/block/", "200")); got != 2 {
		t.Errorf("block requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/superAdmin/api/vendors/", "transport")); got != 1 {
		t.Errorf("transport failures = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"shopctl_store_loads_total", "shopctl_mutations_total", "shopctl_api_request_duration_seconds"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("DEBUG"); err != nil || l != slog.LevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo, "json").Info("hello", slog.String("k", "v"))
	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"app":"shopctl"`) {
		t.Errorf("unexpected log line: %s", out)
	}
}
