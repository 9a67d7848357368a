package httputil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/proxy-manager/internal/adapters/in/http/httputil"
)

func TestIsLoopbackAddr(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"ipv4 loopback", "127.0.0.1:7080", true},
		{"ipv4 loopback other", "127.0.0.2:9000", true},
		{"ipv6 loopback bracketed", "[::1]:7080", true},
		{"localhost name", "localhost:7080", true},
		{"all interfaces", ":7080", false},
		{"unspecified ipv4", "0.0.0.0:7080", false},
		{"external ipv4", "192.168.1.1:7080", false},
		{"external ipv6", "[2001:db8::1]:7080", false},
		{"bare host", "127.0.0.1", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httputil.IsLoopbackAddr(tt.addr), tt.addr)
		})
	}
}
