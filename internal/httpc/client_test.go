package httpc

import (
	"testing"
	"time"
)

func TestNewClientTimeout(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{5 * time.Second, 5 * time.Second},
		{0, DefaultTimeout},
		{-time.Second, DefaultTimeout},
	}
	for _, tt := range tests {
		c := NewClient(tt.in)
		if c.Timeout != tt.want {
			t.Errorf("NewClient(%v).Timeout = %v, want %v", tt.in, c.Timeout, tt.want)
		}
		if c.Transport == nil {
			t.Error("transport not set")
		}
	}
}
