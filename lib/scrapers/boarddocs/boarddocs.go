// Package boarddocs scrapes BoardDocs board portals. BoardDocs exposes
// a small POST API under the site's board.nsf path: one call lists the
// committees, one call per committee lists its meetings as JSON. Each
// meeting yields a single agenda Asset pointing at its meta page.
package boarddocs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"civicscraper/lib/civic"
	"civicscraper/lib/linkclass"
	"civicscraper/lib/restyutil"
	"civicscraper/lib/sitecache"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.scrapers.boarddocs")

const platform = "boarddocs"

type Options struct {
	Place    string
	State    string
	Timezone string
	Cache    *sitecache.Cache
}

type Site struct {
	url string
	// apiBase is the URL up through board.nsf; the BD-* endpoints hang
	// off it.
	apiBase  string
	instance string
	state    string
	opts     Options
	client   *resty.Client
}

// hostedPath matches the canonical go.boarddocs.com/{state}/{place}
// layout.
var hostedPath = regexp.MustCompile(`boarddocs\.com/([a-z]{2})/([a-z0-9]+)`)

func NewSite(siteURL string, opts Options) (*Site, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	client, err := restyutil.NewClient(restyutil.ClientOptions{
		BaseURL:    siteURL,
		TracerName: "scrapers/boarddocs/http",
	})
	if err != nil {
		return nil, err
	}
	state, instance := location(siteURL, u)
	return &Site{
		url:      siteURL,
		apiBase:  apiBase(siteURL),
		instance: instance,
		state:    state,
		opts:     opts,
		client:   client,
	}, nil
}

func (s *Site) URL() string { return s.url }

// location pulls {state}/{place} out of the hosted URL layout, falling
// back to the first two path segments for self-hosted portals.
func location(siteURL string, u *url.URL) (state, place string) {
	if m := hostedPath.FindStringSubmatch(siteURL); m != nil {
		return m[1], m[2]
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) >= 2 && len(segs[0]) == 2 {
		return segs[0], segs[1]
	}
	return "", strings.Split(u.Hostname(), ".")[0]
}

// apiBase strips the trailing public-view segment so the BD-* endpoints
// can be joined on: .../board.nsf/Public -> .../board.nsf
func apiBase(siteURL string) string {
	lower := strings.ToLower(siteURL)
	if i := strings.LastIndex(lower, ".nsf"); i >= 0 {
		return siteURL[:i+len(".nsf")]
	}
	return strings.TrimSuffix(siteURL, "/")
}

// committee is one node of the portal's committee tree.
type committee struct {
	Unique string `json:"unique"`
	Name   string `json:"name"`
}

// meeting is one row of a committee's meetings list. Numberdate is
// yyyymmdd; entries without one are placeholders and carry no agenda.
type meeting struct {
	Unique     string `json:"unique"`
	Name       string `json:"name"`
	Numberdate string `json:"numberdate"`
}

func (s *Site) Scrape(ctx context.Context, opts civic.ScrapeOptions) (civic.Collection, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("url", s.url))

	committees, err := s.committees(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list committees")
		return nil, err
	}
	slog.InfoContext(ctx, "listed boarddocs committees",
		"url", s.url, "committees", len(committees))

	var out civic.Collection
	for _, c := range committees {
		meetings, err := s.meetings(ctx, c.Unique)
		if err != nil {
			// one broken committee shouldn't sink the rest of the tree
			slog.WarnContext(ctx, "skipping committee with unreadable meetings list",
				"committee", c.Name, "err", err)
			continue
		}
		for _, m := range meetings {
			out = append(out, s.assetsFromMeeting(ctx, c, m)...)
		}
	}

	out = out.FilterDateRange(opts.StartDate, opts.EndDate)
	if opts.Download {
		out = s.downloadPass(ctx, out, opts)
	}
	return out, nil
}

func (s *Site) assetsFromMeeting(ctx context.Context, c committee, m meeting) civic.Collection {
	if m.Numberdate == "" {
		return nil
	}
	date, err := time.Parse("20060102", m.Numberdate)
	if err != nil {
		slog.WarnContext(ctx, "dropping meeting with malformed numberdate",
			"meeting", m.Name, "numberdate", m.Numberdate)
		return nil
	}

	name := m.Name
	if name == "" {
		name = c.Name
	}

	return civic.Standardize(ctx, civic.RawMeeting{
		Platform:  platform,
		Instance:  s.instance,
		Name:      name,
		Date:      date.Format("2006-01-02"),
		Committee: c.Name,
		RawID:     m.Unique,
		Links: []linkclass.Candidate{{
			URL:   s.apiBase + "/goto?open&id=" + m.Unique,
			Label: civic.MapAssetType("meeting_meta_link"),
		}},
	}, civic.StandardizeOptions{
		SourceURL: s.url,
		Zone:      s.opts.Timezone,
		Place:     s.place(),
		State:     s.stateOrProvince(),
	})
}

func (s *Site) place() string {
	if s.opts.Place != "" {
		return s.opts.Place
	}
	return s.instance
}

func (s *Site) stateOrProvince() string {
	if s.opts.State != "" {
		return s.opts.State
	}
	return s.state
}

// committees lists the portal's committee tree. Newer portals answer
// with JSON; older ones render an HTML select, so both are accepted.
func (s *Site) committees(ctx context.Context) ([]committee, error) {
	body, err := s.post(ctx, s.apiBase+"/BD-GetCommittees?open", nil)
	if err != nil {
		return nil, err
	}

	var out []committee
	if err := json.Unmarshal(body, &out); err == nil {
		return out, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse committees response: %w", err)
	}
	doc.Find("option[value], a[unique]").Each(func(_ int, sel *goquery.Selection) {
		id, ok := sel.Attr("value")
		if !ok {
			id, _ = sel.Attr("unique")
		}
		if id == "" {
			return
		}
		out = append(out, committee{Unique: id, Name: strings.TrimSpace(sel.Text())})
	})
	return out, nil
}

func (s *Site) meetings(ctx context.Context, committeeID string) ([]meeting, error) {
	body, err := s.post(ctx, s.apiBase+"/BD-GetMeetingsList?open",
		map[string]string{"current_committee_id": committeeID})
	if err != nil {
		return nil, err
	}
	var out []meeting
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode meetings list: %w", err)
	}
	return out, nil
}

func (s *Site) post(ctx context.Context, endpoint string, form map[string]string) ([]byte, error) {
	cacheKey := endpoint
	for _, v := range form {
		cacheKey += "#" + v
	}
	if s.opts.Cache != nil {
		if cached, err := s.opts.Cache.Get(ctx, cacheKey); err == nil {
			return cached.Contents, nil
		}
	}

	req := s.client.R().SetContext(ctx)
	if len(form) > 0 {
		req.SetFormData(form)
	}
	res, err := req.Post(endpoint)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("post %s: status %d", endpoint, res.StatusCode())
	}

	if s.opts.Cache != nil {
		err = s.opts.Cache.Set(ctx, cacheKey, sitecache.Artifact{
			Contents:    res.Body(),
			ContentType: res.Header().Get("content-type"),
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to cache response", "url", endpoint, "err", err)
		}
	}
	return res.Body(), nil
}

func (s *Site) downloadPass(ctx context.Context, assets civic.Collection, opts civic.ScrapeOptions) civic.Collection {
	var out civic.Collection
	for _, a := range assets {
		res, err := s.client.R().SetContext(ctx).Head(a.URL)
		if err == nil && res.StatusCode() < 400 {
			a.ContentType = res.Header().Get("content-type")
			if cl := res.Header().Get("content-length"); cl != "" {
				if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
					a.ContentLength = n
				}
			}
		}
		if opts.Skippable(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}
