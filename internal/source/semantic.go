// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// semanticBulkURL is the Semantic Scholar bulk search endpoint. Declared as
// a var so tests can substitute an httptest server.
var semanticBulkURL = "https://api.semanticscholar.org/graph/v1/paper/search/bulk"

const semanticFields = "paperId,title,url,abstract,authors,year,venue,externalIds," +
	"citationCount,influentialCitationCount,openAccessPdf,publicationTypes," +
	"publicationDate,fieldsOfStudy"

const semanticMaxPage = 1000

// SemanticScholar queries the Semantic Scholar bulk search API. It is the
// primary source and the only one that reports influential citations.
// Venue, date, open access, publication type and sort are filtered server
// side. The cursor is the continuation token returned by the API.
type SemanticScholar struct {
	Transport
	APIKey string
}

// Name returns the source id.
func (s *SemanticScholar) Name() string { return "s2" }

// Fetch retrieves one page of results.
func (s *SemanticScholar) Fetch(ctx context.Context, req FetchRequest) (Page, error) {
	params := semanticParams(req)
	reqURL := semanticBulkURL + "?" + params.Encode()

	header := http.Header{}
	if s.APIKey != "" {
		header.Set("x-api-key", s.APIKey)
	}

	var sr semanticResponse
	if err := s.getJSON(ctx, s.Name(), reqURL, header, &sr); err != nil {
		return Page{}, err
	}

	page := Page{NextCursor: sr.Token, TotalEstimated: sr.Total}
	if len(sr.Data) == 0 {
		page.NextCursor = ""
	}
	for _, p := range sr.Data {
		page.Items = append(page.Items, p.toRaw())
	}
	return page, nil
}

func semanticParams(req FetchRequest) url.Values {
	q := req.Query
	params := url.Values{
		"fields": {semanticFields},
		"limit":  {strconv.Itoa(capPageSize(req.PageSize, semanticMaxPage))},
	}
	if req.Terms != "" && req.Terms != MatchAll {
		params.Set("query", req.Terms)
	}
	if req.Cursor != "" {
		params.Set("token", req.Cursor)
	}
	if q.DateStart != "" || q.DateEnd != "" {
		params.Set("publicationDateOrYear", strings.TrimSpace(q.DateStart)+":"+strings.TrimSpace(q.DateEnd))
	}
	if len(q.Venues) > 0 {
		params.Set("venue", strings.Join(q.Venues, ","))
	}
	if q.OpenAccessRequired {
		params.Set("openAccessPdf", "")
	}
	if pts := uniqueNonEmpty(q.PublicationTypes); len(pts) > 0 {
		params.Set("publicationTypes", strings.Join(pts, ","))
	}
	switch q.SortBy {
	case types.SortCitationCount:
		params.Set("sort", "citationCount:desc")
	case types.SortPublicationDate:
		params.Set("sort", "publicationDate:desc")
	}
	return params
}

func uniqueNonEmpty(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	var out []string
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total *int            `json:"total"`
	Token string          `json:"token"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID                  string              `json:"paperId"`
	Title                    string              `json:"title"`
	URL                      string              `json:"url"`
	Abstract                 string              `json:"abstract"`
	Year                     *int                `json:"year"`
	Venue                    string              `json:"venue"`
	PublicationDate          string              `json:"publicationDate"`
	Authors                  []semanticAuthor    `json:"authors"`
	ExternalIDs              semanticExternalIDs `json:"externalIds"`
	CitationCount            *int                `json:"citationCount"`
	InfluentialCitationCount *int                `json:"influentialCitationCount"`
	OpenAccessPDF            *semanticPDF        `json:"openAccessPdf"`
	PublicationTypes         []string            `json:"publicationTypes"`
	FieldsOfStudy            []string            `json:"fieldsOfStudy"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticPDF struct {
	URL string `json:"url"`
}

func (p semanticPaper) toRaw() types.RawRecord {
	r := types.RawRecord{
		SourceID:                 p.PaperID,
		Title:                    p.Title,
		Abstract:                 p.Abstract,
		DOI:                      p.ExternalIDs.DOI,
		URL:                      p.URL,
		PublicationDate:          p.PublicationDate,
		Year:                     p.Year,
		Venue:                    p.Venue,
		CitationCount:            p.CitationCount,
		InfluentialCitationCount: p.InfluentialCitationCount,
		OpenAccess:               types.BoolPtr(p.OpenAccessPDF != nil),
		PublicationTypes:         p.PublicationTypes,
		FieldsOfStudy:            p.FieldsOfStudy,
	}
	if p.OpenAccessPDF != nil {
		r.PDFURL = p.OpenAccessPDF.URL
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			r.Authors = append(r.Authors, a.Name)
		}
	}
	return r
}
