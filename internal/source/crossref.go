// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// crossrefWorksURL is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefWorksURL = "https://api.crossref.org/works"

const (
	crossrefMaxPage = 100
	crossrefSelect  = "title,author,issued,DOI,URL,container-title,type,is-referenced-by-count,link"
)

// Crossref queries the Crossref works API using deep paging. The cursor is
// the next-cursor token; the first page sends "*".
type Crossref struct {
	Transport
	// Mailto is sent for Crossref polite pool access.
	Mailto string
}

// Name returns the source id.
func (c *Crossref) Name() string { return "crossref" }

// Fetch retrieves one page of results.
func (c *Crossref) Fetch(ctx context.Context, req FetchRequest) (Page, error) {
	q := req.Query
	cursor := req.Cursor
	if cursor == "" {
		cursor = "*"
	}
	params := url.Values{
		"rows":   {strconv.Itoa(capPageSize(req.PageSize, crossrefMaxPage))},
		"select": {crossrefSelect},
		"cursor": {cursor},
	}
	if req.Terms != "" && req.Terms != MatchAll {
		params.Set("query", req.Terms)
	}

	var filters []string
	if start, ok, _ := types.ParseDateBound(q.DateStart, false); ok {
		filters = append(filters, "from-pub-date:"+start.Format("2006-01-02"))
	}
	if end, ok, _ := types.ParseDateBound(q.DateEnd, true); ok {
		filters = append(filters, "until-pub-date:"+end.Format("2006-01-02"))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	switch q.SortBy {
	case types.SortPublicationDate:
		params.Set("sort", "issued")
		params.Set("order", "desc")
	case types.SortCitationCount:
		params.Set("sort", "is-referenced-by-count")
		params.Set("order", "desc")
	}
	if c.Mailto != "" {
		params.Set("mailto", c.Mailto)
	}

	header := http.Header{"Accept": {"application/json"}}
	var cr crossrefResponse
	if err := c.getJSON(ctx, c.Name(), crossrefWorksURL+"?"+params.Encode(), header, &cr); err != nil {
		return Page{}, err
	}

	msg := cr.Message
	page := Page{TotalEstimated: msg.TotalResults}
	for _, it := range msg.Items {
		page.Items = append(page.Items, it.toRaw())
	}
	if len(msg.Items) > 0 && msg.NextCursor != "" && msg.NextCursor != req.Cursor {
		page.NextCursor = msg.NextCursor
	}
	return page, nil
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Status  string          `json:"status"`
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	TotalResults *int           `json:"total-results"`
	NextCursor   string         `json:"next-cursor"`
	Items        []crossrefWork `json:"items"`
}

type crossrefWork struct {
	DOI            string           `json:"DOI"`
	URL            string           `json:"URL"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Type           string           `json:"type"`
	ReferencedBy   *int             `json:"is-referenced-by-count"`
	Author         []crossrefAuthor `json:"author"`
	Issued         crossrefDate     `json:"issued"`
	Link           []crossrefLink   `json:"link"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]*int `json:"date-parts"`
}

type crossrefLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}

func (w crossrefWork) toRaw() types.RawRecord {
	r := types.RawRecord{
		SourceID:      w.DOI,
		DOI:           w.DOI,
		URL:           w.URL,
		CitationCount: w.ReferencedBy,
	}
	if len(w.Title) > 0 {
		r.Title = w.Title[0]
	}
	if len(w.ContainerTitle) > 0 {
		r.Venue = w.ContainerTitle[0]
	}
	if w.Type != "" {
		r.PublicationTypes = []string{w.Type}
	}
	for _, a := range w.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	for _, l := range w.Link {
		if l.ContentType == "application/pdf" {
			r.PDFURL = l.URL
			break
		}
	}
	r.Year, r.PublicationDate = crossrefIssued(w.Issued)
	return r
}

// crossrefIssued converts date-parts ([[year, month, day]], month and day
// optional) to a year and a date string at the available precision.
func crossrefIssued(d crossrefDate) (*int, string) {
	if len(d.DateParts) == 0 {
		return nil, ""
	}
	parts := d.DateParts[0]
	if len(parts) == 0 || parts[0] == nil {
		return nil, ""
	}
	year := *parts[0]
	switch {
	case len(parts) >= 3 && parts[1] != nil && parts[2] != nil:
		return &year, fmt.Sprintf("%04d-%02d-%02d", year, *parts[1], *parts[2])
	case len(parts) >= 2 && parts[1] != nil:
		return &year, fmt.Sprintf("%04d-%02d", year, *parts[1])
	default:
		return &year, ""
	}
}
