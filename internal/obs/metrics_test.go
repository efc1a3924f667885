package obs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestWriteTextIncludesRegisteredMetrics(t *testing.T) {
	InitBuildInfo("test", "abc123")
	Init()
	StoreOperations.WithLabelValues("upsert", "citizens").Inc()

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"maptss_store_operations_total", `build_info{commit="abc123",version="test"} 1`} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("upsert", "citizens")); got < 1 {
		t.Fatalf("unexpected counter value %v", got)
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLogger(NewLogger(&buf, "debug"))
	defer restore()

	Logger().Debug("store opened", "collections", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "store opened" || entry["collections"] != float64(12) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"": "INFO", "debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "bogus": "INFO"}
	for in, want := range cases {
		if got := ParseLevel(in).String(); got != want {
			t.Fatalf("ParseLevel(%q)=%s, want %s", in, got, want)
		}
	}
}

func TestLoginAttemptsLabels(t *testing.T) {
	c := LoginAttempts.WithLabelValues("gestor", "throttled")
	c.Inc()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.GetCounter().GetValue() < 1 {
		t.Fatalf("counter not incremented: %v", m.GetCounter())
	}
	labels := map[string]string{}
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["role"] != "gestor" || labels["outcome"] != "throttled" {
		t.Fatalf("unexpected labels %v", labels)
	}
}
