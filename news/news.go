// Package news is the source for headlines scraped from the search pages of
// news sites declared in the configuration.
//
// The symbol is the search term. Each site declares CSS selectors for the
// result items and, inside an item, for the title, the link and the
// publication date. The "site" filter restricts the search to one site.
package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
)

// Name of the source.
const Name = "news"

// Source scrapes configured sites.
type Source struct {
	client *http.Client
	sites  []dataterm.SiteConfig
}

// New returns a source scraping sites in order.
func New(client *http.Client, sites []dataterm.SiteConfig) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{client: client, sites: sites}
}

func (s *Source) Name() string { return Name }

func (s *Source) Description() string {
	if len(s.sites) == 0 {
		return "news headlines, no site configured (news.sites)"
	}
	names := make([]string, len(s.sites))
	for i, site := range s.sites {
		names[i] = site.Name
	}
	return "news headlines matching a search term, sites: " + strings.Join(names, ", ")
}

// Headline is a scraped search result.
type Headline struct {
	Source    string
	Title     string
	URL       string
	Published date.Date // zero when unknown
}

// Fetch implements dataterm.Source. Headlines published out of the query
// range are dropped, undated ones are kept.
func (s *Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	sites := s.sites
	if name := q.Filter("site", ""); name != "" {
		i := slices.IndexFunc(sites, func(c dataterm.SiteConfig) bool { return strings.EqualFold(c.Name, name) })
		if i < 0 {
			return nil, fmt.Errorf("%w: unknown news site %q", dataterm.ErrInvalidParameters, name)
		}
		sites = sites[i : i+1]
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w: no news site configured", dataterm.ErrSourceUnavailable)
	}

	t := dataterm.MustTable(
		dataterm.Category("source"),
		dataterm.Category("title"),
		dataterm.Category("url"),
		dataterm.Date("published"),
	)
	for _, site := range sites {
		headlines, err := s.scrape(ctx, site, q.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", site.Name, err)
		}
		for _, h := range headlines {
			var published any
			if !h.Published.IsZero() {
				if !q.Range.Contains(h.Published) {
					continue
				}
				published = h.Published
			}
			if err := t.Append(h.Source, h.Title, h.URL, published); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// scrape returns the headlines of a site search page.
func (s *Source) scrape(ctx context.Context, site dataterm.SiteConfig, term string) ([]Headline, error) {
	addr := strings.ReplaceAll(site.URL, "{query}", url.QueryEscape(term))
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: site url: %v", dataterm.ErrInvalidParameters, err)
	}
	body, err := dataterm.GetBody(ctx, s.client, addr)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
	}
	return extract(doc.Selection, site, base), nil
}

// extract reads the headlines out of a document. Items without a title are
// skipped.
func extract(doc *goquery.Selection, site dataterm.SiteConfig, base *url.URL) []Headline {
	var headlines []Headline
	doc.Find(site.Item).Each(func(_ int, item *goquery.Selection) {
		title := item.Find(site.Title).First()
		h := Headline{
			Source: site.Name,
			Title:  strings.Join(strings.Fields(title.Text()), " "),
		}
		if h.Title == "" {
			return
		}

		link := title
		if site.Link != "" {
			link = item.Find(site.Link).First()
		}
		href, ok := link.Attr("href")
		if !ok {
			href, _ = link.Find("a").First().Attr("href")
		}
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil && href != "" {
			h.URL = base.ResolveReference(ref).String()
		}

		if site.Published != "" {
			pub := item.Find(site.Published).First()
			when, ok := pub.Attr("datetime")
			if !ok {
				when = pub.Text()
			}
			h.Published = parsePublished(strings.TrimSpace(when), site.DateFormat)
		}
		headlines = append(headlines, h)
	})
	return headlines
}

// parsePublished returns the publication day, zero when it cannot be parsed.
func parsePublished(s, layout string) date.Date {
	if s == "" {
		return date.Date{}
	}
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return date.FromTime(t)
		}
		return date.Date{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return date.FromTime(t)
	}
	if d, err := date.Parse(s); err == nil {
		return d
	}
	return date.Date{}
}
