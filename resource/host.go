package resource

import (
	"fmt"
	"net/url"
)

// hostOf extracts the admission-scheduler host key (host, no port) for
// a URI. It is deliberately the only place in the package that parses
// a URI, so the one error path ToRequest needs stays in one spot.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing uri: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("uri %q has no host", rawURL)
	}
	return u.Hostname(), nil
}
