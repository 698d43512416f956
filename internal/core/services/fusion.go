package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DefaultRRFConstant damps the advantage of top ranks in fusion.
const DefaultRRFConstant = 60

// Fuse merges ranked lists with Reciprocal Rank Fusion.
//
// A chunk at 0-indexed rank r in a list contributes 1/(k+r); contributions
// for the same chunk are summed across lists. The first list a chunk appears
// in supplies its record, with Score replaced by the fused score. Output is
// sorted by fused score descending; ties keep first-seen order.
//
// A list that repeats a chunk is rejected with ErrInvalidInput.
func Fuse(lists [][]domain.SearchResult, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	var fused []domain.SearchResult
	index := make(map[string]int)

	for li, list := range lists {
		inList := make(map[string]struct{}, len(list))
		for rank, r := range list {
			if _, dup := inList[r.ChunkID]; dup {
				return nil, fmt.Errorf("fuse list %d: chunk %q repeated: %w", li, r.ChunkID, domain.ErrInvalidInput)
			}
			inList[r.ChunkID] = struct{}{}

			contribution := 1.0 / float64(k+rank)
			if i, seen := index[r.ChunkID]; seen {
				fused[i].Score += contribution
				continue
			}
			index[r.ChunkID] = len(fused)
			r.Score = contribution
			fused = append(fused, r)
		}
	}

	domain.SortByScore(fused)
	return fused, nil
}
