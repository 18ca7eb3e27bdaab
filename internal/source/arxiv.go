// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const (
	arxivMaxPage    = 100
	arxivMaxAuthors = 25
	arxivMaxSummary = 4000
)

// Arxiv queries the arXiv Atom API. The cursor is the start offset. arXiv
// has no date or venue filters; those are applied by the filter pipeline.
type Arxiv struct {
	Transport
}

// Name returns the source id.
func (a *Arxiv) Name() string { return "arxiv" }

// Fetch retrieves one page of results. A match-all fragment yields an empty
// page because arXiv requires search terms.
func (a *Arxiv) Fetch(ctx context.Context, req FetchRequest) (Page, error) {
	sq := arxivSearchQuery(req.Terms)
	if sq == "" {
		return Page{}, nil
	}

	start := 0
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil || n < 0 {
			return Page{}, &FetchError{Source: a.Name(), Err: errInvalidCursor(req.Cursor)}
		}
		start = n
	}
	size := capPageSize(req.PageSize, arxivMaxPage)

	sortBy := "relevance"
	if req.Query.SortBy == types.SortPublicationDate {
		sortBy = "submittedDate"
	}
	params := url.Values{
		"search_query": {sq},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(size)},
		"sortBy":       {sortBy},
		"sortOrder":    {"descending"},
	}

	header := http.Header{"Accept": {"application/atom+xml"}}
	body, err := a.get(ctx, a.Name(), arxivAPIBase+"?"+params.Encode(), header)
	if err != nil {
		return Page{}, err
	}

	// The Atom parser keeps every link with its rel and title; the PDF link
	// is rel="related", which the universal parser drops.
	fp := &atom.Parser{}
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return Page{}, &FetchError{Source: a.Name(), Err: fmt.Errorf("parsing arXiv feed: %w", err)}
	}

	page := Page{TotalEstimated: extInt(feed.Extensions, "opensearch", "totalResults")}
	for _, entry := range feed.Entries {
		if r, ok := arxivRecord(entry); ok {
			page.Items = append(page.Items, r)
		}
	}
	next := start + len(feed.Entries)
	if len(feed.Entries) > 0 && (page.TotalEstimated == nil || next < *page.TotalEstimated) {
		page.NextCursor = strconv.Itoa(next)
	}
	return page, nil
}

var arxivTokens = regexp.MustCompile(`"[^"]+"|\S+`)

// arxivSearchQuery maps a query fragment onto arXiv's all: field syntax.
// Quoted phrases stay phrases; terms are joined with AND.
func arxivSearchQuery(terms string) string {
	terms = strings.TrimSpace(terms)
	if terms == "" || terms == MatchAll {
		return ""
	}
	var parts []string
	for _, tok := range arxivTokens.FindAllString(terms, -1) {
		parts = append(parts, "all:"+tok)
	}
	return strings.Join(parts, " AND ")
}

func arxivRecord(entry *atom.Entry) (types.RawRecord, bool) {
	if entry == nil {
		return types.RawRecord{}, false
	}
	absURL := strings.TrimSpace(entry.ID)
	id := extractArxivID(absURL)
	if id == "" {
		absURL = arxivLink(entry.Links, func(l *atom.Link) bool { return l.Rel == "" || l.Rel == "alternate" })
		id = extractArxivID(absURL)
	}
	if id == "" {
		return types.RawRecord{}, false
	}

	r := types.RawRecord{
		SourceID:         id,
		Title:            strings.Join(strings.Fields(entry.Title), " "),
		Abstract:         truncateRunes(strings.TrimSpace(entry.Summary), arxivMaxSummary),
		URL:              absURL,
		Venue:            "arXiv",
		OpenAccess:       types.BoolPtr(true),
		PublicationTypes: []string{"preprint"},
		PDFURL: arxivLink(entry.Links, func(l *atom.Link) bool {
			return l.Title == "pdf" || l.Type == "application/pdf"
		}),
	}
	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			r.FieldsOfStudy = append(r.FieldsOfStudy, c.Term)
		}
	}
	for _, p := range entry.Authors {
		if p == nil {
			continue
		}
		if name := strings.TrimSpace(p.Name); name != "" && len(r.Authors) < arxivMaxAuthors {
			r.Authors = append(r.Authors, name)
		}
	}
	if len(entry.Published) >= 10 {
		r.PublicationDate = entry.Published[:10]
	}
	if entry.PublishedParsed != nil {
		r.Year = types.IntPtr(entry.PublishedParsed.Year())
	}
	if dois := entry.Extensions["arxiv"]["doi"]; len(dois) > 0 {
		r.DOI = strings.TrimSpace(dois[0].Value)
	}
	return r, true
}

// arxivLink returns the href of the first link matching keep.
func arxivLink(links []*atom.Link, keep func(*atom.Link) bool) string {
	for _, l := range links {
		if l != nil && l.Href != "" && keep(l) {
			return strings.TrimSpace(l.Href)
		}
	}
	return ""
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// extInt reads an integer extension element such as opensearch:totalResults.
func extInt(exts ext.Extensions, ns, name string) *int {
	vals := exts[ns][name]
	if len(vals) == 0 {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(vals[0].Value))
	if err != nil {
		return nil
	}
	return &n
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
