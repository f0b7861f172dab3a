package nn

import (
	"fmt"
	"slices"

	"github.com/born-ml/convkit/internal/tensor"
)

// Rank is the number of axes of a layer input, batch and channel included.
type Rank int

// Ranks with a concrete 1D, 2D and 3D implementation.
const (
	Rank3 Rank = 3 // [N, C, L]
	Rank4 Rank = 4 // [N, C, H, W]
	Rank5 Rank = 5 // [N, C, D, H, W]
)

// RankOf returns the rank of an input shape. The result need not be one
// of the supported ranks.
func RankOf(shape tensor.Shape) Rank {
	return Rank(len(shape))
}

// SpatialDims returns the number of spatial axes.
func (r Rank) SpatialDims() int {
	return int(r) - 2
}

// String returns e.g. "rank 4 (2D)".
func (r Rank) String() string {
	return fmt.Sprintf("rank %d (%dD)", int(r), r.SpatialDims())
}

// sortedRanks returns the keys of a factory table in ascending order.
func sortedRanks[F any](factories map[Rank]F) []Rank {
	ranks := make([]Rank, 0, len(factories))
	for r := range factories {
		ranks = append(ranks, r)
	}
	slices.Sort(ranks)
	return ranks
}
