// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-survey/pkg/types"
)

func withCrossrefServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := crossrefWorksURL
	crossrefWorksURL = ts.URL
	t.Cleanup(func() { crossrefWorksURL = old })
}

func TestCrossref_ParsesPage(t *testing.T) {
	var captured *http.Request
	withCrossrefServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{
			"status": "ok",
			"message": {
				"total-results": 42,
				"next-cursor": "DnF1ZXJ5",
				"items": [
					{
						"DOI": "10.1145/3292500.3330701",
						"URL": "http://dx.doi.org/10.1145/3292500.3330701",
						"title": ["Graph Convolutional Networks"],
						"container-title": ["Proceedings of KDD"],
						"type": "proceedings-article",
						"is-referenced-by-count": 321,
						"author": [{"given": "Jane", "family": "Doe"}, {"name": "The Consortium"}],
						"issued": {"date-parts": [[2019, 7, 25]]},
						"link": [{"URL": "https://dl.acm.org/doi/pdf/10.1145/3292500.3330701", "content-type": "application/pdf"}]
					},
					{
						"DOI": "10.1/x",
						"title": ["Month only"],
						"issued": {"date-parts": [[2020, 3]]}
					},
					{
						"DOI": "10.1/y",
						"title": ["No date"],
						"issued": {"date-parts": [[null]]}
					}
				]
			}
		}`)
	})

	c := &Crossref{Transport: testTransport(), Mailto: "me@example.com"}
	page, err := c.Fetch(context.Background(), FetchRequest{
		Query: types.StructuredQuery{DateStart: "2019-03", DateEnd: "2020", SortBy: types.SortCitationCount},
		Terms: "graph",
	})
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, "graph", q.Get("query"))
	assert.Equal(t, "*", q.Get("cursor"))
	assert.Equal(t, "from-pub-date:2019-03-01,until-pub-date:2020-12-31", q.Get("filter"))
	assert.Equal(t, "is-referenced-by-count", q.Get("sort"))
	assert.Equal(t, "me@example.com", q.Get("mailto"))

	assert.Equal(t, "DnF1ZXJ5", page.NextCursor)
	require.NotNil(t, page.TotalEstimated)
	assert.Equal(t, 42, *page.TotalEstimated)
	require.Len(t, page.Items, 3)

	r := page.Items[0]
	assert.Equal(t, "Graph Convolutional Networks", r.Title)
	assert.Equal(t, "Proceedings of KDD", r.Venue)
	assert.Equal(t, []string{"Jane Doe", "The Consortium"}, r.Authors)
	assert.Equal(t, "2019-07-25", r.PublicationDate)
	assert.Equal(t, "https://dl.acm.org/doi/pdf/10.1145/3292500.3330701", r.PDFURL)
	require.NotNil(t, r.CitationCount)
	assert.Equal(t, 321, *r.CitationCount)
	assert.Nil(t, r.OpenAccess)

	assert.Equal(t, "2020-03", page.Items[1].PublicationDate)
	require.NotNil(t, page.Items[1].Year)
	assert.Equal(t, 2020, *page.Items[1].Year)

	assert.Nil(t, page.Items[2].Year)
	assert.Empty(t, page.Items[2].PublicationDate)
	assert.Nil(t, page.Items[2].CitationCount)
}

func TestCrossref_RepeatedCursorEndsPaging(t *testing.T) {
	withCrossrefServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"message":{"next-cursor":"same","items":[{"DOI":"10.1/z","title":["t"]}]}}`)
	})

	c := &Crossref{Transport: testTransport()}
	page, err := c.Fetch(context.Background(), FetchRequest{Terms: "x", Cursor: "same"})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
}
