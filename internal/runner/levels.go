package runner

import (
	"errors"
	"fmt"
	"sort"
)

// ResolveLevels returns the concurrency schedule. An explicit list wins and is
// de-duplicated and sorted. Otherwise levels are 1, step, 2*step, ... up to
// maxLevel, which is always included.
func ResolveLevels(explicit []int, step, maxLevel int) ([]int, error) {
	var levels []int
	switch {
	case len(explicit) > 0:
		for _, n := range explicit {
			if n < 1 {
				return nil, fmt.Errorf("concurrency level %d must be >= 1", n)
			}
		}
		levels = append(levels, explicit...)
	case step > 0 && maxLevel > 0:
		levels = append(levels, 1)
		for n := step; n < maxLevel; n += step {
			levels = append(levels, n)
		}
		levels = append(levels, maxLevel)
	case step > 0 || maxLevel > 0:
		return nil, errors.New("step and max concurrency must both be > 0")
	default:
		return nil, errors.New("no concurrency levels configured")
	}
	return dedupe(levels), nil
}

func dedupe(levels []int) []int {
	sort.Ints(levels)
	out := levels[:0]
	for i, n := range levels {
		if i > 0 && n == levels[i-1] {
			continue
		}
		out = append(out, n)
	}
	return out
}
