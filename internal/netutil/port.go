// Package netutil picks a listen address for the API server.
package netutil

import (
	"fmt"
	"net"
	"strings"
)

// Listen binds the first free address, starting with preferred. Candidates are
// only tried when fallback is enabled. The returned listener is already bound,
// so there is no window for another process to take the port.
func Listen(preferred string, candidates []string, fallback bool) (net.Listener, error) {
	order := bindOrder(preferred, candidates, fallback)
	if len(order) == 0 {
		return nil, fmt.Errorf("no bind address configured")
	}

	var failures []string
	for _, addr := range order {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		failures = append(failures, addr)
	}
	if len(order) == 1 {
		return nil, fmt.Errorf("bind address in use: %s", order[0])
	}
	return nil, fmt.Errorf("no free bind address (tried %s)", strings.Join(failures, ", "))
}

// bindOrder returns the addresses to try, without duplicates.
func bindOrder(preferred string, candidates []string, fallback bool) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	add(preferred)
	if fallback || preferred == "" {
		for _, c := range candidates {
			add(c)
		}
	}
	return out
}
