package tracking

import "context"

// Distance returns the Levenshtein edit distance between a and b, counted
// in runes. An empty operand yields 0: a missing body carries no signal.
func Distance(a, b string) int {
	d, _ := DistanceContext(context.Background(), a, b)
	return d
}

// DistanceContext is Distance with cancellation. The O(len(a)*len(b)) table
// is filled one row at a time and ctx is checked between rows.
func DistanceContext(ctx context.Context, a, b string) (int, error) {
	if a == "" || b == "" {
		return 0, nil
	}
	if a == b {
		return 0, nil
	}

	s1 := []rune(a)
	s2 := []rune(b)

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)], nil
}
