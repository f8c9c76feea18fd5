package civic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedSite is the only error surfaced when a URL matches no
// registered platform.
var ErrUnsupportedSite = errors.New("no scraper supports this site")

// Factory builds a scraper for one concrete site URL.
type Factory func(siteURL string) (SiteScraper, error)

type rule struct {
	name      string
	predicate func(url string) bool
	factory   Factory
}

// Registry maps site URLs to platform scrapers by trying ordered
// predicate rules. Order matters: the first matching rule wins.
type Registry struct {
	rules []rule
}

func (r *Registry) Register(name string, predicate func(url string) bool, factory Factory) {
	r.rules = append(r.rules, rule{name: name, predicate: predicate, factory: factory})
}

// RegisterSubstrings registers a rule that matches when the URL
// contains every given fragment (case-insensitive).
func (r *Registry) RegisterSubstrings(name string, factory Factory, fragments ...string) {
	r.Register(name, func(url string) bool {
		lower := strings.ToLower(url)
		for _, f := range fragments {
			if !strings.Contains(lower, strings.ToLower(f)) {
				return false
			}
		}
		return true
	}, factory)
}

// Lookup resolves a site URL to a constructed scraper.
func (r *Registry) Lookup(siteURL string) (SiteScraper, error) {
	platform, factory, err := r.match(siteURL)
	if err != nil {
		return nil, err
	}
	s, err := factory(siteURL)
	if err != nil {
		return nil, fmt.Errorf("build %s scraper: %w", platform, err)
	}
	return s, nil
}

// Platform reports which rule a URL would hit, without constructing
// the scraper.
func (r *Registry) Platform(siteURL string) (string, error) {
	platform, _, err := r.match(siteURL)
	return platform, err
}

func (r *Registry) match(siteURL string) (string, Factory, error) {
	for _, rule := range r.rules {
		if rule.predicate(siteURL) {
			return rule.name, rule.factory, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedSite, siteURL)
}
