package retriever

import (
	"sort"

	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/internal/vecmath"
)

// MMR selects up to k candidates by maximal marginal relevance. Each
// candidate's Score is its similarity to the query. The first pick is the
// most relevant candidate; every later pick maximises
//
//	lambda*relevance - (1-lambda)*max similarity to the picks so far
//
// Ties go to the more relevant candidate. Candidates with a repeated ID
// are considered once.
func MMR(candidates []models.ScoredChunk, k int, lambda float64) []models.ScoredChunk {
	pool := make([]models.ScoredChunk, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		pool = append(pool, c)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})

	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return []models.ScoredChunk{}
	}

	selected := make([]models.ScoredChunk, 0, k)
	used := make([]bool, len(pool))
	// redundancy[i] is the highest similarity of pool[i] to any pick
	redundancy := make([]float64, len(pool))

	for len(selected) < k {
		best := -1
		var bestScore float64
		for i, c := range pool {
			if used[i] {
				continue
			}
			score := float64(c.Score)
			if len(selected) > 0 {
				score = lambda*float64(c.Score) - (1-lambda)*redundancy[i]
			}
			if best == -1 || score > bestScore {
				best, bestScore = i, score
			}
		}

		used[best] = true
		pick := pool[best]
		selected = append(selected, pick)

		for i, c := range pool {
			if used[i] {
				continue
			}
			sim := float64(vecmath.Cosine(c.Embedding, pick.Embedding))
			if len(selected) == 1 || sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}

	return selected
}
