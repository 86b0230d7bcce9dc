package memory

import (
	"sort"
	"time"

	"github.com/oraculo-ai/oraculo/internal/interpreter"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// ConsolidationResult reports what a consolidation pass changed.
type ConsolidationResult struct {
	Merged  int `json:"merged"`
	Removed int `json:"removed"`
}

// consolidate plans a consolidation pass over one user's active memories.
// Memories are partitioned by context type and greedily clustered by content
// similarity; each cluster keeps one survivor and expires the rest. The
// survivor of a merged cluster gets an importance bump. Running the plan over
// its own output changes nothing.
func consolidate(memories []models.ContextualMemory, snap *lexicon.Snapshot, mergeThreshold float64, now time.Time) (updated []models.ContextualMemory, expired []models.ContextualMemory, result ConsolidationResult) {
	byType := make(map[models.ContextType][]models.ContextualMemory)
	for _, m := range memories {
		if !m.Active(now) {
			continue
		}
		byType[m.ContextType] = append(byType[m.ContextType], m)
	}

	for contextType, group := range byType {
		// Newest first so cluster seeds and tie-breaks favor recency.
		sort.Slice(group, func(i, j int) bool {
			return group[i].CreatedAt.After(group[j].CreatedAt)
		})

		clustered := make([]bool, len(group))
		for i := range group {
			if clustered[i] {
				continue
			}
			cluster := []int{i}
			clustered[i] = true
			for j := i + 1; j < len(group); j++ {
				if clustered[j] {
					continue
				}
				if interpreter.Similarity(group[i].Content, group[j].Content, snap) >= mergeThreshold {
					cluster = append(cluster, j)
					clustered[j] = true
				}
			}
			if len(cluster) == 1 {
				continue
			}

			survivor := pickSurvivor(group, cluster, contextType)
			bumped := group[survivor]
			if bumped.Importance < models.MaxImportance {
				bumped.Importance++
			}
			updated = append(updated, bumped)
			result.Merged++

			for _, idx := range cluster {
				if idx == survivor {
					continue
				}
				expired = append(expired, group[idx])
				result.Removed++
			}
		}
	}
	return updated, expired, result
}

// pickSurvivor chooses which memory of a cluster stays. Preferences are
// mutually exclusive values of the same topic, so the most recent statement
// wins outright; for everything else the most important one survives, with
// recency as the tie-break. Indices arrive newest first.
func pickSurvivor(group []models.ContextualMemory, cluster []int, contextType models.ContextType) int {
	if contextType == models.ContextPreference {
		return cluster[0]
	}
	best := cluster[0]
	for _, idx := range cluster[1:] {
		if group[idx].Importance > group[best].Importance {
			best = idx
		}
	}
	return best
}
