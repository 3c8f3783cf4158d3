package httpclient

import (
	"testing"
	"time"
)

func TestNewOutbound_Timeout(t *testing.T) {
	if c := NewOutbound(3 * time.Second); c.Timeout != 3*time.Second {
		t.Fatalf("timeout=%v want 3s", c.Timeout)
	}
	if c := NewOutbound(0); c.Timeout != 30*time.Second {
		t.Fatalf("default timeout=%v want 30s", c.Timeout)
	}
}
