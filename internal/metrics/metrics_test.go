package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollector_Observations(t *testing.T) {
	c := New(WithConstLabels(prometheus.Labels{"mount": "test"}))

	c.ObserveBytes("received", 8)
	c.ObserveBytes("received", 4)
	c.ObserveBytes("sent", 5)
	c.ObserveDispatch(protocol.Stats{Frames: 3, Dispatched: 2, Heartbeats: 1, ChecksumDrops: 1})
	c.ObserveReconnect()
	c.ObserveState("open")
	c.ObserveError("dial")

	out := scrape(t, c)
	wants := []string{
		`virtkeypad_bytes_total{direction="received",mount="test"} 12`,
		`virtkeypad_bytes_total{direction="sent",mount="test"} 5`,
		`virtkeypad_messages_total{direction="received",mount="test"} 2`,
		`virtkeypad_frames_total{mount="test",result="valid"} 3`,
		`virtkeypad_frames_total{mount="test",result="checksum_mismatch"} 1`,
		`virtkeypad_commands_total{mount="test",outcome="dispatched"} 2`,
		`virtkeypad_heartbeats_total{mount="test"} 1`,
		`virtkeypad_reconnects_total{mount="test"} 1`,
		`virtkeypad_errors_total{kind="dial",mount="test"} 1`,
		`virtkeypad_connection_state{mount="test",state="open"} 1`,
		`virtkeypad_connection_state{mount="test",state="idle"} 0`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestCollector_SeparateRegistries(t *testing.T) {
	a := New()
	b := New(WithNamespace("other"))
	a.ObserveReconnect()

	if !strings.Contains(scrape(t, a), "virtkeypad_reconnects_total 1") {
		t.Error("first collector should count its reconnect")
	}
	if strings.Contains(scrape(t, b), "virtkeypad_") {
		t.Error("second collector should not see the first one's metrics")
	}
}
