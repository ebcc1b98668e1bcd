package drug

import "context"

// Index runs the ranked search passes against the brand index. Results come
// back in relevance order: token-AND (when the query has two or more tokens),
// then contains, then fuzzy trigram.
type Index interface {
	SearchRanked(ctx context.Context, q string, limit int) ([][]Brand, error)
}
