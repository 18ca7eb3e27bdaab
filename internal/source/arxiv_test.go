// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/mmcdole/gofeed/atom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-survey/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/"
      xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>arXiv Query</title>
  <id>http://arxiv.org/api/abc</id>
  <updated>2024-01-01T00:00:00-05:00</updated>
  <opensearch:totalResults>3</opensearch:totalResults>
  <opensearch:startIndex>0</opensearch:startIndex>
  <opensearch:itemsPerPage>2</opensearch:itemsPerPage>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <updated>2023-08-02T00:41:18Z</updated>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models.  </summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <arxiv:doi>10.48550/arXiv.1706.03762</arxiv:doi>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <updated>2023-01-17T00:00:00Z</updated>
    <published>2023-01-17T00:00:00Z</published>
    <title>Second paper</title>
    <summary>Another.</summary>
    <author><name>Jane Doe</name></author>
  </entry>
</feed>`

func withArxivServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })
}

func TestArxiv_ParsesFeed(t *testing.T) {
	var captured *http.Request
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, arxivFixture)
	})

	a := &Arxiv{Transport: testTransport()}
	page, err := a.Fetch(context.Background(), FetchRequest{
		Query:    types.StructuredQuery{SortBy: types.SortPublicationDate},
		Terms:    `"attention mechanism" transformer`,
		PageSize: 2,
	})
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, `all:"attention mechanism" AND all:transformer`, q.Get("search_query"))
	assert.Equal(t, "0", q.Get("start"))
	assert.Equal(t, "2", q.Get("max_results"))
	assert.Equal(t, "submittedDate", q.Get("sortBy"))

	require.NotNil(t, page.TotalEstimated)
	assert.Equal(t, 3, *page.TotalEstimated)
	assert.Equal(t, "2", page.NextCursor)
	require.Len(t, page.Items, 2)

	r := page.Items[0]
	assert.Equal(t, "1706.03762", r.SourceID)
	assert.Equal(t, "Attention Is All You Need", r.Title)
	assert.Equal(t, "The dominant sequence transduction models.", r.Abstract)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, r.Authors)
	assert.Equal(t, "10.48550/arXiv.1706.03762", r.DOI)
	assert.Equal(t, "2017-06-12", r.PublicationDate)
	require.NotNil(t, r.Year)
	assert.Equal(t, 2017, *r.Year)
	assert.Equal(t, "arXiv", r.Venue)
	assert.Equal(t, []string{"preprint"}, r.PublicationTypes)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", r.PDFURL)
	require.NotNil(t, r.OpenAccess)
	assert.True(t, *r.OpenAccess)
	assert.Nil(t, r.CitationCount)

	assert.Equal(t, []string{"cs.CL"}, r.FieldsOfStudy)
	assert.Equal(t, "http://arxiv.org/abs/1706.03762v7", r.URL)

	assert.Empty(t, page.Items[1].DOI)
	assert.Empty(t, page.Items[1].PDFURL, "no pdf link in the entry")
}

func TestArxivRecord_RelatedPDFLink(t *testing.T) {
	tests := []struct {
		name  string
		links []*atom.Link
		want  string
	}{
		{
			name: "related link titled pdf",
			links: []*atom.Link{
				{Href: "http://arxiv.org/abs/2101.00001v2", Rel: "alternate", Type: "text/html"},
				{Href: "http://arxiv.org/pdf/2101.00001v2", Rel: "related", Title: "pdf"},
			},
			want: "http://arxiv.org/pdf/2101.00001v2",
		},
		{
			name:  "typed pdf link without title",
			links: []*atom.Link{{Href: "http://arxiv.org/pdf/2101.00001v2", Rel: "related", Type: "application/pdf"}},
			want:  "http://arxiv.org/pdf/2101.00001v2",
		},
		{
			name:  "doi link is not a pdf",
			links: []*atom.Link{{Href: "http://dx.doi.org/10.1/x", Rel: "related", Title: "doi"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := arxivRecord(&atom.Entry{ID: "http://arxiv.org/abs/2101.00001v2", Title: "T", Links: tt.links})
			require.True(t, ok)
			assert.Equal(t, tt.want, r.PDFURL)
		})
	}
}

func TestArxivRecord_IDFromAlternateLink(t *testing.T) {
	r, ok := arxivRecord(&atom.Entry{
		Title: "T",
		Links: []*atom.Link{{Href: "http://arxiv.org/abs/2101.00001v1", Rel: "alternate"}},
	})
	require.True(t, ok)
	assert.Equal(t, "2101.00001", r.SourceID)

	_, ok = arxivRecord(&atom.Entry{Title: "no id"})
	assert.False(t, ok)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"cut inside two-byte rune", "aé", 2, "a"},
		{"cut inside three-byte rune", "ab€", 4, "ab"},
		{"cut at rune boundary", "a€b", 4, "a€"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestArxiv_LastPage(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, arxivFixture)
	})

	a := &Arxiv{Transport: testTransport()}
	page, err := a.Fetch(context.Background(), FetchRequest{Terms: "x", Cursor: "1"})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor, "start 1 + 2 entries reaches total 3")
}

func TestArxiv_MatchAllSkipsRequest(t *testing.T) {
	var calls int32
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	a := &Arxiv{Transport: testTransport()}
	page, err := a.Fetch(context.Background(), FetchRequest{Terms: MatchAll})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestArxiv_MalformedFeed(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not xml")
	})

	a := &Arxiv{Transport: testTransport()}
	_, err := a.Fetch(context.Background(), FetchRequest{Terms: "x"})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.Transient)
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v2", "hep-th/9901001"},
		{"http://example.com/other", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArxivID(tt.in))
		})
	}
}
