package preload

import "fmt"

// MaxNeighborhood is the hard ceiling on indices selected per Preload call.
const MaxNeighborhood = 5

// Neighborhood returns the indices to prefetch around current in a sequence
// of the given length.
//
// The selection is current, current+1, current-1 and, for sequences longer
// than three items, current+2 and current-2. All offsets wrap around so a
// looping gallery prefetches across its boundary. Duplicates are dropped
// (first occurrence wins) and the result is capped at min(5, length).
//
// Out-of-range input is reported, never clamped.
func Neighborhood(length, current int) ([]int, error) {
	if length <= 0 {
		return nil, ErrEmptyItems
	}
	if current < 0 || current >= length {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrInvalidIndex, current, length)
	}

	offsets := []int{0, 1, -1}
	if length > 3 {
		offsets = append(offsets, 2, -2)
	}

	limit := min(MaxNeighborhood, length)
	seen := make(map[int]struct{}, len(offsets))
	indices := make([]int, 0, limit)

	for _, off := range offsets {
		idx := wrap(current+off, length)
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
		if len(indices) == limit {
			break
		}
	}

	return indices, nil
}

// wrap maps i into [0, n).
func wrap(i, n int) int {
	return ((i % n) + n) % n
}
