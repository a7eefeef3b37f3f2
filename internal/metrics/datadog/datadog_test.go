package datadog

import (
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"onmcombine/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend(empty) error = nil, want non-nil")
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"kind": "adhoc", "job": "onm"})
	want := []string{"job:onm", "kind:adhoc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Fatalf("labelsToTags(nil) should be nil")
	}
}

// TestBackend_SendsOverUDP points the backend at a local UDP listener and
// checks that a counter reaches it after Flush.
func TestBackend_SendsOverUDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "onm."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": "primary"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	buf := make([]byte, 64*1024)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = pc.SetReadDeadline(deadline)
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			break
		}
		if strings.Contains(string(buf[:n]), "onm."+metrics.RecordsTotal+":4|c") {
			return
		}
	}
	t.Fatalf("counter %s not received", metrics.RecordsTotal)
}
