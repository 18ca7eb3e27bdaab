// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-survey/pkg/types"
)

func withSemanticServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := semanticBulkURL
	semanticBulkURL = ts.URL
	t.Cleanup(func() { semanticBulkURL = old })
}

func TestSemanticScholar_RequestParams(t *testing.T) {
	var captured *http.Request
	withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"total":0,"data":[]}`)
	})

	s := &SemanticScholar{Transport: testTransport(), APIKey: "key-123"}
	_, err := s.Fetch(context.Background(), FetchRequest{
		Query: types.StructuredQuery{
			Venues:             []string{"ICLR", "NeurIPS"},
			DateStart:          "2020",
			DateEnd:            "2023-06",
			OpenAccessRequired: true,
			PublicationTypes:   []string{"JournalArticle", "JournalArticle", "Conference"},
			SortBy:             types.SortCitationCount,
		},
		Terms:    `"graph neural network" molecule`,
		Cursor:   "tok-2",
		PageSize: 150,
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	q := captured.URL.Query()
	assert.Equal(t, `"graph neural network" molecule`, q.Get("query"))
	assert.Equal(t, "150", q.Get("limit"))
	assert.Equal(t, "tok-2", q.Get("token"))
	assert.Equal(t, "2020:2023-06", q.Get("publicationDateOrYear"))
	assert.Equal(t, "ICLR,NeurIPS", q.Get("venue"))
	assert.True(t, q.Has("openAccessPdf"))
	assert.Equal(t, "JournalArticle,Conference", q.Get("publicationTypes"))
	assert.Equal(t, "citationCount:desc", q.Get("sort"))
	assert.Contains(t, q.Get("fields"), "influentialCitationCount")
	assert.Equal(t, "key-123", captured.Header.Get("x-api-key"))
	assert.Equal(t, "paper-survey-test", captured.Header.Get("User-Agent"))
}

func TestSemanticScholar_MatchAllOmitsQuery(t *testing.T) {
	var captured *http.Request
	withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"total":0,"data":[]}`)
	})

	s := &SemanticScholar{Transport: testTransport()}
	_, err := s.Fetch(context.Background(), FetchRequest{Terms: MatchAll})
	require.NoError(t, err)
	assert.False(t, captured.URL.Query().Has("query"))
	assert.Empty(t, captured.Header.Get("x-api-key"))
}

func TestSemanticScholar_ParsesPage(t *testing.T) {
	withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"total": 1234,
			"token": "next-token",
			"data": [
				{
					"paperId": "abc123",
					"title": "Attention Is All You Need",
					"url": "https://www.semanticscholar.org/paper/abc123",
					"abstract": "The dominant sequence transduction models...",
					"year": 2017,
					"venue": "Neural Information Processing Systems",
					"publicationDate": "2017-06-12",
					"authors": [{"authorId": "1", "name": "Ashish Vaswani"}, {"authorId": "2", "name": ""}],
					"externalIds": {"DOI": "10.5555/3295222.3295349", "ArXiv": "1706.03762"},
					"citationCount": 90000,
					"influentialCitationCount": 0,
					"openAccessPdf": {"url": "https://arxiv.org/pdf/1706.03762"},
					"publicationTypes": ["JournalArticle", "Conference"],
					"fieldsOfStudy": ["Computer Science"]
				},
				{
					"paperId": "def456",
					"title": "No metadata",
					"openAccessPdf": null
				}
			]
		}`)
	})

	s := &SemanticScholar{Transport: testTransport()}
	page, err := s.Fetch(context.Background(), FetchRequest{Terms: "attention"})
	require.NoError(t, err)

	assert.Equal(t, "next-token", page.NextCursor)
	require.NotNil(t, page.TotalEstimated)
	assert.Equal(t, 1234, *page.TotalEstimated)
	require.Len(t, page.Items, 2)

	r := page.Items[0]
	assert.Equal(t, "abc123", r.SourceID)
	assert.Equal(t, "10.5555/3295222.3295349", r.DOI)
	assert.Equal(t, []string{"Ashish Vaswani"}, r.Authors)
	assert.Equal(t, "2017-06-12", r.PublicationDate)
	require.NotNil(t, r.Year)
	assert.Equal(t, 2017, *r.Year)
	require.NotNil(t, r.InfluentialCitationCount)
	assert.Equal(t, 0, *r.InfluentialCitationCount, "zero is a known value")
	assert.Equal(t, "https://arxiv.org/pdf/1706.03762", r.PDFURL)
	require.NotNil(t, r.OpenAccess)
	assert.True(t, *r.OpenAccess)

	bare := page.Items[1]
	assert.Nil(t, bare.Year)
	assert.Nil(t, bare.CitationCount)
	assert.Nil(t, bare.InfluentialCitationCount)
	require.NotNil(t, bare.OpenAccess)
	assert.False(t, *bare.OpenAccess)
}

func TestSemanticScholar_EmptyPageEndsPaging(t *testing.T) {
	withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":10,"token":"stale","data":[]}`)
	})

	s := &SemanticScholar{Transport: testTransport()}
	page, err := s.Fetch(context.Background(), FetchRequest{Terms: "x"})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
}

func TestSemanticScholar_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
		wantCalls     int32
	}{
		{"bad request is terminal", http.StatusBadRequest, `{"error":"bad"}`, false, 1},
		{"unavailable after retries is terminal", http.StatusServiceUnavailable, ``, false, 2},
		{"rate limited after retries is terminal", http.StatusTooManyRequests, ``, false, 2},
		{"malformed body is terminal", http.StatusOK, `{not json`, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			s := &SemanticScholar{Transport: testTransport()}
			_, err := s.Fetch(context.Background(), FetchRequest{Terms: "x"})
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "s2", fe.Source)
			assert.Equal(t, tt.wantTransient, fe.Transient)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantCalls > 1 {
				assert.Contains(t, err.Error(), "retries exhausted")
			}
		})
	}
}
