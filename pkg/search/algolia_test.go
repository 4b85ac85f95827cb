package search_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	algoliasearch "github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/prometheux/docschat/pkg/search"
)

// docSearchRequester answers every Algolia call with a fixed body, or blocks
// until the request context is done when block is set.
type docSearchRequester struct {
	mu    sync.Mutex
	paths []string

	response string
	block    bool
}

func (r *docSearchRequester) Request(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.paths = append(r.paths, req.URL.Path)
	r.mu.Unlock()

	if r.block {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(10 * time.Second):
		}
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(r.response)),
		Request:    req,
	}, nil
}

const docSearchResponse = `{
	"hits": [
		{"objectID": "1", "hierarchy": {"lvl0": "Docs", "lvl1": "Aggregations"}, "content": "Use #avg.", "url": "https://docs.prometheux.ai/docs/aggregations"},
		{"objectID": "2", "hierarchy": {"lvl0": "Docs"}, "content": "No page title.", "url": "/docs/misc"},
		{"objectID": "3", "hierarchy": null, "content": null, "url": "/docs/empty"}
	],
	"nbHits": 7,
	"page": 0,
	"nbPages": 2,
	"hitsPerPage": 5,
	"processingTimeMS": 1,
	"query": "average",
	"params": "query=average"
}`

var _ = Describe("AlgoliaSearcher", func() {
	var requester *docSearchRequester

	newSearcher := func() *search.AlgoliaSearcher {
		return search.NewAlgoliaSearcherWithConfig(algoliasearch.Configuration{
			AppID:     "TESTAPP",
			APIKey:    "search-only",
			Hosts:     []string{"docsearch.invalid"},
			Requester: requester,
		}, search.DefaultAlgoliaIndex)
	}

	BeforeEach(func() {
		requester = &docSearchRequester{response: docSearchResponse}
	})

	It("maps DocSearch records to hits", func() {
		hits, total, err := newSearcher().Search(context.Background(), "average", search.DefaultHitsPerPage)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(7))

		Expect(hits).To(Equal([]search.Hit{
			{Title: "Aggregations", Content: "Use #avg.", URL: "https://docs.prometheux.ai/docs/aggregations"},
			{Title: "", Content: "No page title.", URL: "/docs/misc"},
			{Title: "", Content: "", URL: "/docs/empty"},
		}))

		requester.mu.Lock()
		defer requester.mu.Unlock()
		Expect(requester.paths).To(HaveLen(1))
		Expect(requester.paths[0]).To(HaveSuffix("/indexes/" + search.DefaultAlgoliaIndex + "/query"))
	})

	It("feeds the retriever with fallback titles and absolute URLs", func() {
		r := search.NewRetriever(newSearcher(), zap.NewNop(), search.WithTopK(2))
		res := r.Retrieve(context.Background(), "average")

		Expect(res.Len()).To(Equal(2))
		Expect(res.Snippets[0].Title).To(Equal("Aggregations"))
		Expect(res.Snippets[1].Title).To(Equal("Documentation"))
		Expect(res.Snippets[1].URL).To(Equal(search.DefaultDocsBaseURL + "/docs/misc"))
	})

	It("stops when the request context is done", func() {
		requester.block = true

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, _, err := newSearcher().Search(ctx, "average", search.DefaultHitsPerPage)

		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})
})
