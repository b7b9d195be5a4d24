package content

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Site carries the public-site metadata the feeds embed.
type Site struct {
	BaseURL     string
	Title       string
	Description string
	Author      string
	Language    string
}

const atomNS = "http://www.w3.org/2005/Atom"

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSS renders the 20 newest published posts as an RSS 2.0 feed.
func (l *Library) RSS(site Site, now time.Time) ([]byte, error) {
	base := strings.TrimRight(site.BaseURL, "/")

	posts := l.Published()
	if len(posts) > 20 {
		posts = posts[:20]
	}

	feed := rssFeed{
		Version: "2.0",
		AtomNS:  atomNS,
		Channel: rssChannel{
			Title:         site.Title,
			Link:          base,
			Description:   site.Description,
			Language:      site.Language,
			LastBuildDate: now.UTC().Format(time.RFC1123Z),
			AtomLink: atomLink{
				Href: base + "/rss.xml",
				Rel:  "self",
				Type: "application/rss+xml",
			},
		},
	}

	for _, p := range posts {
		link := fmt.Sprintf("%s/blog/%s", base, p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			Description: p.Description,
			PubDate:     p.Date.UTC().Format(time.RFC1123Z),
			Categories:  p.Tags,
		}
		if p.Category != "" {
			item.Categories = append([]string{p.Category}, p.Tags...)
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	out, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering rss: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// staticPages are the site pages that always appear in the sitemap.
var staticPages = []sitemapURL{
	{Loc: "/", ChangeFreq: "weekly", Priority: "1.0"},
	{Loc: "/blog", ChangeFreq: "daily", Priority: "0.9"},
	{Loc: "/projects", ChangeFreq: "weekly", Priority: "0.8"},
	{Loc: "/games", ChangeFreq: "monthly", Priority: "0.6"},
}

// Sitemap renders sitemap.xml covering the static pages and every
// published post.
func (l *Library) Sitemap(site Site) ([]byte, error) {
	base := strings.TrimRight(site.BaseURL, "/")

	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, page := range staticPages {
		page.Loc = base + page.Loc
		set.URLs = append(set.URLs, page)
	}

	for _, p := range l.Published() {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/blog/%s", base, p.Slug),
			LastMod:    p.Date.UTC().Format("2006-01-02"),
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
