package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedRealIP rewrites RemoteAddr from X-Real-IP or the first
// X-Forwarded-For entry, but only for connections from a trusted proxy.
// Entries may be CIDRs or single addresses; invalid ones are logged and skipped.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	prefixes := parsePrefixes(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fromTrusted(r.RemoteAddr, prefixes) {
				if ip, ok := forwardedIP(r.Header); ok {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parsePrefixes(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "entry", e, "error", err)
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func fromTrusted(remote string, prefixes []netip.Prefix) bool {
	if len(prefixes) == 0 {
		return false
	}
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func forwardedIP(h http.Header) (netip.Addr, bool) {
	candidate := h.Get("X-Real-IP")
	if candidate == "" {
		xff := h.Get("X-Forwarded-For")
		candidate, _, _ = strings.Cut(xff, ",")
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(candidate))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}
