// Package proxy parses proxy lists and rotates egress addresses.
package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Address is a single proxy egress point.
type Address struct {
	Scheme string
	Host   string
	Port   int
}

// String renders the address in its canonical scheme:host:port form.
func (a Address) String() string {
	return a.Scheme + ":" + net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// URL returns the address as a proxy URL usable by net/http.
func (a Address) URL() *url.URL {
	return &url.URL{Scheme: a.Scheme, Host: net.JoinHostPort(a.Host, strconv.Itoa(a.Port))}
}

var supportedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// ParseAddress parses "scheme:host:port" or "host:port". The scheme defaults to http.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")

	var addr Address
	switch len(parts) {
	case 2:
		addr.Scheme = "http"
		addr.Host = parts[0]
	case 3:
		addr.Scheme = strings.ToLower(parts[0])
		addr.Host = parts[1]
	default:
		return Address{}, fmt.Errorf("proxy %q: expected scheme:host:port or host:port", raw)
	}

	if !supportedSchemes[addr.Scheme] {
		return Address{}, fmt.Errorf("proxy %q: unsupported scheme %q", raw, addr.Scheme)
	}
	if addr.Host == "" {
		return Address{}, fmt.Errorf("proxy %q: empty host", raw)
	}
	port, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || port <= 0 || port > 65535 {
		return Address{}, fmt.Errorf("proxy %q: invalid port", raw)
	}
	addr.Port = port
	return addr, nil
}

// ParseList reads one address per line. Blank lines and lines starting with
// '#' are skipped; duplicates are dropped keeping the first occurrence.
func ParseList(r io.Reader) ([]Address, error) {
	var out []Address
	seen := make(map[Address]struct{})

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := ParseAddress(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list: %w", err)
	}
	return out, nil
}

// LoadFile reads a proxy list from disk.
func LoadFile(path string) ([]Address, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()
	return ParseList(f)
}
