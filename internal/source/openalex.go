// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// openAlexWorksURL is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksURL = "https://api.openalex.org/works"

const (
	openAlexMaxPage     = 200
	openAlexMaxConcepts = 5
)

// OpenAlex queries the OpenAlex Works API. The cursor is the 1-based page
// number.
type OpenAlex struct {
	Transport
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the source id.
func (o *OpenAlex) Name() string { return "openalex" }

// Fetch retrieves one page of results.
func (o *OpenAlex) Fetch(ctx context.Context, req FetchRequest) (Page, error) {
	pageNum := 1
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil || n < 1 {
			return Page{}, &FetchError{Source: o.Name(), Err: errInvalidCursor(req.Cursor)}
		}
		pageNum = n
	}
	perPage := capPageSize(req.PageSize, openAlexMaxPage)

	params := openAlexParams(req, perPage, pageNum, o.Email)
	var oar openAlexResponse
	if err := o.getJSON(ctx, o.Name(), openAlexWorksURL+"?"+params.Encode(), nil, &oar); err != nil {
		return Page{}, err
	}

	page := Page{TotalEstimated: oar.Meta.Count}
	for _, w := range oar.Results {
		page.Items = append(page.Items, w.toRaw())
	}
	if len(oar.Results) > 0 && (oar.Meta.Count == nil || pageNum*perPage < *oar.Meta.Count) {
		page.NextCursor = strconv.Itoa(pageNum + 1)
	}
	return page, nil
}

func openAlexParams(req FetchRequest, perPage, pageNum int, email string) url.Values {
	q := req.Query
	params := url.Values{
		"per-page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(pageNum)},
	}
	if req.Terms != "" && req.Terms != MatchAll {
		params.Set("search", req.Terms)
	}

	var filters []string
	if start, ok, _ := types.ParseDateBound(q.DateStart, false); ok {
		filters = append(filters, "from_publication_date:"+start.Format("2006-01-02"))
	}
	if end, ok, _ := types.ParseDateBound(q.DateEnd, true); ok {
		filters = append(filters, "to_publication_date:"+end.Format("2006-01-02"))
	}
	if q.OpenAccessRequired {
		filters = append(filters, "open_access.is_oa:true")
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	switch q.SortBy {
	case types.SortPublicationDate:
		params.Set("sort", "publication_date:desc")
	case types.SortCitationCount:
		params.Set("sort", "cited_by_count:desc")
	}
	if email != "" {
		params.Set("mailto", email)
	}
	return params
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   *int `json:"count"`
	PerPage int  `json:"per_page"`
	Page    int  `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       *int                 `json:"publication_year"`
	Type                  string               `json:"type"`
	CitedByCount          *int                 `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            *openAlexOpenAccess  `json:"open_access"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	Concepts              []openAlexConcept    `json:"concepts"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

type openAlexLocation struct {
	LandingPageURL string          `json:"landing_page_url"`
	PDFURL         string          `json:"pdf_url"`
	Source         *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}

type openAlexConcept struct {
	DisplayName string `json:"display_name"`
}

func (w openAlexWork) toRaw() types.RawRecord {
	r := types.RawRecord{
		SourceID:        w.ID,
		Title:           w.Title,
		Abstract:        reconstructAbstract(w.AbstractInvertedIndex),
		DOI:             strings.TrimPrefix(w.DOI, "https://doi.org/"),
		PublicationDate: w.PublicationDate,
		Year:            w.PublicationYear,
		CitationCount:   w.CitedByCount,
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			r.Authors = append(r.Authors, a.Author.DisplayName)
		}
	}
	if loc := w.PrimaryLocation; loc != nil {
		r.URL = loc.LandingPageURL
		r.PDFURL = loc.PDFURL
		if loc.Source != nil {
			r.Venue = loc.Source.DisplayName
		}
	}
	if r.URL == "" {
		r.URL = w.ID
	}
	if w.OpenAccess != nil {
		r.OpenAccess = types.BoolPtr(w.OpenAccess.IsOA)
	}
	if w.Type != "" {
		r.PublicationTypes = []string{w.Type}
	}
	for i, c := range w.Concepts {
		if i >= openAlexMaxConcepts {
			break
		}
		if c.DisplayName != "" {
			r.FieldsOfStudy = append(r.FieldsOfStudy, c.DisplayName)
		}
	}
	return r
}
