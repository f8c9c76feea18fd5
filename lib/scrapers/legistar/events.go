package legistar

import (
	"context"
	"fmt"
	"strings"

	"civicscraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// cell is one field of a calendar row: its text and, when the cell
// held an anchor, the link target.
type cell struct {
	Text string
	URL  string
}

// event is one calendar row keyed by column label.
type event map[string]cell

func (e event) text(label string) string { return e[label].Text }
func (e event) url(label string) string  { return e[label].URL }

// eventsClient lists the rows of a Legistar calendar grid.
type eventsClient struct {
	client  *resty.Client
	pageURL string
}

// events fetches the calendar page and flattens its master grid into
// label-keyed rows. Rows without a date cell are discarded here; the
// caller decides what the remaining fields mean.
func (c *eventsClient) events(ctx context.Context) ([]event, error) {
	res, err := c.client.R().SetContext(ctx).Get(c.pageURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("fetch calendar %s: status %d", c.pageURL, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body())))
	if err != nil {
		return nil, fmt.Errorf("parse calendar page: %w", err)
	}

	grid := doc.Find("table.rgMasterTable").First()
	if grid.Length() == 0 {
		grid = doc.Find("table").First()
	}
	if grid.Length() == 0 {
		return nil, nil
	}

	var labels []string
	grid.Find("th").Each(func(_ int, th *goquery.Selection) {
		labels = append(labels, htmlutil.CleanText(th.Text()))
	})
	if len(labels) == 0 {
		return nil, nil
	}

	var out []event
	grid.Find("tbody tr, tr.rgRow, tr.rgAltRow").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		ev := event{}
		cells.Each(func(i int, td *goquery.Selection) {
			if i >= len(labels) {
				return
			}
			c := cell{Text: htmlutil.CleanText(td.Text())}
			if a := td.Find("a[href]").First(); a.Length() > 0 {
				c.URL, _ = a.Attr("href")
				if c.Text == "" {
					c.Text = htmlutil.CleanText(a.Text())
				}
			}
			ev[labels[i]] = c
		})
		if len(ev) > 0 {
			out = append(out, ev)
		}
	})
	return out, nil
}
