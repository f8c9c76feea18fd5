package civicclerk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"civicscraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

// endpoints is the discovered API surface of one CivicClerk tenant.
// Zero-valued fields mean discovery never found that endpoint.
type endpoints struct {
	meetings  string
	events    string
	documents string
}

func (e endpoints) empty() bool { return e.meetings == "" && e.events == "" }

// probeBudget caps the speculative host x path requests one discovery
// run may issue.
const probeBudget = 15

// pageConfig is the subset of the portal's window config object that
// discovery cares about. apiUrl may carry a [TENANT] placeholder.
type pageConfig struct {
	OrganizationID string `json:"organizationId"`
	APIURL         string `json:"apiUrl"`
}

var windowConfigPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)window\.__INITIAL_CONFIG__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.APP_CONFIG\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)window\.config\s*=\s*(\{.*?\});`),
}

var (
	jsAPIBase = regexp.MustCompile(`(?:baseUrl|apiUrl|API_URL|API_BASE_URL):\s*["']([^"']+)["']`)
	jsOrgID   = regexp.MustCompile(`(?:organizationId|ORGANIZATION_ID|tenantId|TENANT_ID):\s*["']([^"']+)["']`)
	// quoted strings that look like API routes
	jsEndpoint = regexp.MustCompile(`["']([^"']*?(?:/api/|/meetings|/events|\.api\.civicclerk\.com)[^"']*?)["']`)
	jsTemplate = regexp.MustCompile(`["'](https://\[TENANT\]\.api\.civicclerk\.com[^"']*)["']`)
)

// conventional REST shapes probed when nothing declares an API. Order
// matters: the first validated response wins.
var (
	probePaths = []string{
		"/api/meetings",
		"/api/v1/meetings",
		"/v1/meetings",
		"/api/events",
		"/meetings",
	}
	probeParams = map[string]string{
		"page":          "0",
		"pageSize":      "50",
		"sortBy":        "date",
		"sortDirection": "desc",
	}
)

// discover resolves the tenant's meetings API through a strict
// waterfall: inline window config, JS bundle analysis, conventional
// path probing, then template construction. Each stage runs only when
// the prior ones found nothing.
func (s *Site) discover(ctx context.Context) (endpoints, error) {
	body, err := s.fetch(ctx, s.url)
	if err != nil {
		// no page to analyze; template construction is all that's left
		slog.WarnContext(ctx, "could not fetch portal page, constructing endpoints",
			"url", s.url, "err", err)
		return s.constructedEndpoints(), nil
	}

	if eps := s.fromWindowConfig(ctx, body); !eps.empty() {
		slog.InfoContext(ctx, "discovered api from window config", "meetings", eps.meetings)
		return eps, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return endpoints{}, fmt.Errorf("parse portal page: %w", err)
	}

	if eps := s.fromBundles(ctx, doc); !eps.empty() {
		slog.InfoContext(ctx, "discovered api from js bundles", "meetings", eps.meetings)
		return eps, nil
	}

	if eps := s.fromProbing(ctx); !eps.empty() {
		slog.InfoContext(ctx, "discovered api by probing", "meetings", eps.meetings)
		return eps, nil
	}

	return s.constructedEndpoints(), nil
}

// fromWindowConfig scans the page's inline scripts for a config object
// on window. The object is a JS literal with bare keys, which json5
// accepts as-is.
func (s *Site) fromWindowConfig(ctx context.Context, body string) endpoints {
	for _, pattern := range windowConfigPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		var cfg pageConfig
		if err := json5.Unmarshal([]byte(m[1]), &cfg); err != nil {
			slog.DebugContext(ctx, "unparseable window config", "err", err)
			continue
		}
		if cfg.OrganizationID != "" {
			s.orgID = cfg.OrganizationID
		}
		if cfg.APIURL == "" {
			continue
		}
		base := strings.TrimSuffix(s.expandTenant(cfg.APIURL), "/")
		return endpoints{
			meetings:  base + "/meetings",
			events:    base + "/events",
			documents: base + "/documents",
		}
	}
	return endpoints{}
}

// fromBundles fetches the page's script files and regex-mines them for
// api bases, org ids and endpoint fragments.
func (s *Site) fromBundles(ctx context.Context, doc *goquery.Document) endpoints {
	var scripts []string
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if strings.HasSuffix(src, ".js") {
			scripts = append(scripts, htmlutil.ResolveURL(s.url, src))
		}
	})

	var found endpoints
	for _, scriptURL := range scripts {
		js, err := s.fetch(ctx, scriptURL)
		if err != nil {
			slog.DebugContext(ctx, "could not fetch bundle", "url", scriptURL, "err", err)
			continue
		}

		if s.orgID == "" {
			if m := jsOrgID.FindStringSubmatch(js); m != nil {
				s.orgID = m[1]
			}
		}

		if m := jsAPIBase.FindStringSubmatch(js); m != nil {
			base := strings.TrimSuffix(s.expandTenant(m[1]), "/")
			if strings.HasPrefix(base, "http") {
				found.meetings = base + "/meetings"
				found.events = base + "/events"
				found.documents = base + "/documents"
				return found
			}
		}

		for _, m := range jsTemplate.FindAllStringSubmatch(js, -1) {
			candidate := s.expandTenant(m[1])
			if found.meetings == "" && strings.Contains(candidate, "/meetings") {
				found.meetings = candidate
			}
		}

		for _, m := range jsEndpoint.FindAllStringSubmatch(js, -1) {
			candidate := s.expandTenant(m[1])
			if !strings.HasPrefix(candidate, "http") || skipFragment(candidate) {
				continue
			}
			switch {
			case strings.Contains(candidate, "/meetings") && found.meetings == "":
				found.meetings = candidate
			case strings.Contains(candidate, "/events") && found.events == "":
				found.events = candidate
			case (strings.Contains(candidate, "/documents") || strings.Contains(candidate, "/attachments")) && found.documents == "":
				found.documents = candidate
			}
		}
		if !found.empty() {
			return found
		}
	}
	return found
}

// skipFragment rejects bundle strings that match the route regexes but
// are plainly assets, not API routes.
func skipFragment(s string) bool {
	for _, frag := range []string{"fonts", "static", ".js", ".css"} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}

// fromProbing requests conventional REST paths against the site host
// and the known CivicClerk API hosts, accepting the first response
// that validates as a meetings payload. Total requests are capped by
// probeBudget.
func (s *Site) fromProbing(ctx context.Context) endpoints {
	hosts := []string{
		s.baseURL,
		fmt.Sprintf("https://%s.api.civicclerk.com", s.tenant),
		"https://api.civicclerk.com",
	}

	probes := 0
	for _, host := range hosts {
		for _, path := range probePaths {
			if probes >= probeBudget {
				slog.DebugContext(ctx, "probe budget exhausted", "budget", probeBudget)
				return endpoints{}
			}
			probes++

			endpoint := host + path
			res, err := s.client.R().SetContext(ctx).
				SetQueryParams(probeParams).
				SetHeader("Accept", "application/json").
				SetHeader("X-Requested-With", "XMLHttpRequest").
				Get(endpoint)
			if err != nil || res.StatusCode() != 200 {
				continue
			}
			if looksLikeMeetings(res.Body()) {
				return endpoints{meetings: endpoint}
			}
		}
	}
	return endpoints{}
}

// constructedEndpoints is the last-resort template: every tenant gets a
// subdomain on the shared API host.
func (s *Site) constructedEndpoints() endpoints {
	base := fmt.Sprintf("https://%s.api.civicclerk.com/v1", s.tenant)
	return endpoints{
		meetings:  base + "/meetings",
		events:    base + "/events",
		documents: base + "/documents",
	}
}

func (s *Site) expandTenant(u string) string {
	return strings.ReplaceAll(u, "[TENANT]", s.tenant)
}

// looksLikeMeetings is the loose payload validator used during
// probing: a non-empty list whose items carry meeting-ish fields, or
// one of the known wrapper keys around such a list.
func looksLikeMeetings(body []byte) bool {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return false
	}
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"name", "date", "id"} {
				if _, present := m[key]; present {
					return true
				}
			}
		}
	case map[string]any:
		for _, key := range []string{"items", "meetings", "data"} {
			switch inner := v[key].(type) {
			case []any:
				if len(inner) > 0 {
					return true
				}
			case map[string]any:
				if list, ok := inner["meetings"].([]any); ok && len(list) > 0 {
					return true
				}
			}
		}
	}
	return false
}
