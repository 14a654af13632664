// Package meta looks up bibliographic details for an identifier from the
// citation_* meta tags of its abstract page.
package meta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"arxivdl/pkg/arxivid"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxPage bounds how much of the abstract page is parsed.
const maxPage = 4 << 20

// ErrNotFound is returned when the page has no citation metadata.
var ErrNotFound = errors.New("no citation metadata")

// Paper is the metadata of one article.
type Paper struct {
	ID       string
	Title    string
	Authors  []string
	Date     string
	Abstract string
	PDFURL   string
	PageURL  string
}

// Client fetches abstract pages. The zero value is not usable; see NewClient.
// Immutable
type Client struct {
	http *http.Client
	host string
}

// NewClient returns a Client that queries host through hc.
func NewClient(hc *http.Client, host string) *Client {
	return &Client{http: hc, host: host}
}

// Lookup fetches the abstract page for id and extracts its metadata.
func (c *Client) Lookup(ctx context.Context, id string) (*Paper, error) {
	id, err := arxivid.Parse(id)
	if err != nil {
		return nil, err
	}
	page := arxivid.AbstractURL(c.host, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: bad status: %s", page, resp.Status)
	}

	root, err := html.Parse(http.MaxBytesReader(nil, resp.Body, maxPage))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", page, err)
	}

	p := parse(goquery.NewDocumentFromNode(root))
	if p.Title == "" {
		return nil, fmt.Errorf("%s: %w", page, ErrNotFound)
	}
	p.ID = id
	p.PageURL = page
	slog.Debug("Fetched metadata", "id", id, "title", p.Title, "authors", len(p.Authors))
	return p, nil
}

func parse(doc *goquery.Document) *Paper {
	p := &Paper{}
	doc.Find(`meta[name^="citation_"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content := collapse(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch name {
		case "citation_title":
			p.Title = content
		case "citation_author":
			p.Authors = append(p.Authors, content)
		case "citation_date", "citation_online_date":
			if p.Date == "" {
				p.Date = content
			}
		case "citation_abstract":
			p.Abstract = content
		case "citation_pdf_url":
			p.PDFURL = content
		}
	})
	return p
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
