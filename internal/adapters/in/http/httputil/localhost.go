// Package httputil holds small helpers shared by the HTTP adapters.
package httputil

import (
	"net"
	"strings"
)

// IsLoopbackAddr reports whether a listen address of the form host:port only
// accepts local connections. An empty host binds every interface.
func IsLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
