package civic

import (
	"net/url"
	"regexp"
	"strings"
)

// civicplus-style hosts encode location in the subdomain, e.g.
// "pa-pittsburgh.civicplus.com".
var statePlaceHost = regexp.MustCompile(`^([a-z]{2})-([a-z0-9-]+)$`)

// LocationFromURL derives (place, state) from hosts that encode them.
// Both come back empty when the host doesn't follow the pattern.
func LocationFromURL(rawURL string) (place, state string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) == 0 {
		return "", ""
	}
	m := statePlaceHost.FindStringSubmatch(strings.ToLower(labels[0]))
	if m == nil {
		return "", ""
	}
	return strings.ReplaceAll(m[2], "-", ""), m[1]
}
