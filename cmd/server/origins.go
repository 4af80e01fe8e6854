package main

import (
	"net/url"
	"strings"
)

// hostPatterns reduces CORS origins such as "https://app.example.com" to the
// host patterns websocket.AcceptOptions expects. "*" passes through.
func hostPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" || !strings.Contains(o, "://") {
			out = append(out, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
