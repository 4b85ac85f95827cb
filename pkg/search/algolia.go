package search

import (
	"context"
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	algoliasearch "github.com/algolia/algoliasearch-client-go/v3/algolia/search"
)

// Public DocSearch credentials of the documentation site. The key is
// search-only and already shipped to every browser, so it is not a secret.
const (
	DefaultAlgoliaAppID     = "DCCC0T0ITC"
	DefaultAlgoliaSearchKey = "870d45e2eaf4483e87c2204607df57c7"
	DefaultAlgoliaIndex     = "prometheux-co"
)

// AlgoliaSearcher queries an Algolia DocSearch index.
type AlgoliaSearcher struct {
	index *algoliasearch.Index
}

// NewAlgoliaSearcher creates a searcher for the given application, search-only
// key and index name.
func NewAlgoliaSearcher(appID, searchKey, indexName string) *AlgoliaSearcher {
	return NewAlgoliaSearcherWithConfig(algoliasearch.Configuration{
		AppID:  appID,
		APIKey: searchKey,
	}, indexName)
}

// NewAlgoliaSearcherWithConfig creates a searcher from a full client
// configuration (hosts, timeouts, requester).
func NewAlgoliaSearcherWithConfig(cfg algoliasearch.Configuration, indexName string) *AlgoliaSearcher {
	client := algoliasearch.NewClientWithConfig(cfg)
	return &AlgoliaSearcher{index: client.InitIndex(indexName)}
}

// docSearchHit is the subset of a DocSearch record the proxy reads.
type docSearchHit struct {
	Hierarchy struct {
		Lvl1 string `json:"lvl1"`
	} `json:"hierarchy"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Search implements Searcher. Cancelling ctx aborts the request and any host
// retries.
func (s *AlgoliaSearcher) Search(ctx context.Context, query string, hitsPerPage int) ([]Hit, int, error) {
	res, err := s.index.Search(query,
		ctx,
		opt.HitsPerPage(hitsPerPage),
		opt.RemoveStopWords(true),
		opt.AttributesToRetrieve("content", "hierarchy", "url"),
		opt.AttributesToHighlight(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("algolia search: %w", err)
	}

	var raw []docSearchHit
	if err := res.UnmarshalHits(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode algolia hits: %w", err)
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, Hit{Title: h.Hierarchy.Lvl1, Content: h.Content, URL: h.URL})
	}

	return hits, res.NbHits, nil
}
