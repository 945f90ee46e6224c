package tracking

import "context"

// ChangeSet is the result of one classify cycle. Every identity present in
// the previous or fresh list lands in exactly one of the four buckets.
type ChangeSet struct {
	New       []*Function // only in the fresh list
	Updated   []*Function // matched, accumulated score crossed the threshold this cycle
	Deleted   []*Function // only in the previous list
	Unchanged []*Function // matched, nothing to report
}

// Empty reports whether the cycle produced no new, updated or deleted functions.
func (c *ChangeSet) Empty() bool {
	return len(c.New) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Fresh returns the functions that survive the cycle: new, updated and
// unchanged, ordered by offset. This is the next tracked list.
func (c *ChangeSet) Fresh() []*Function {
	out := make([]*Function, 0, len(c.New)+len(c.Updated)+len(c.Unchanged))
	out = append(out, c.New...)
	out = append(out, c.Updated...)
	out = append(out, c.Unchanged...)
	SortByOffset(out)
	return out
}

// Classify diffs a fresh function list against the previously tracked one.
//
// Functions are matched by start offset. For a match, the edit distance
// between old and new bodies is added to the score carried over from the
// old function. The cycle that takes the score to threshold reports the
// function as Updated; later cycles leave it Unchanged until the score is
// reset. New functions start with no score. A function that moved is seen
// as one deletion plus one new function.
//
// Fresh functions are mutated: their RecordedChangeScore is overwritten.
func Classify(previous, fresh []*Function, threshold int) ChangeSet {
	cs, _ := ClassifyContext(context.Background(), previous, fresh, threshold)
	return cs
}

// ClassifyContext is Classify with cancellation of the distance computations.
func ClassifyContext(ctx context.Context, previous, fresh []*Function, threshold int) (ChangeSet, error) {
	type pair struct {
		old, new *Function
	}

	// Last one seen wins on duplicate start offsets.
	pairs := make(map[int]*pair, len(previous)+len(fresh))
	var order []int
	slot := func(offset int) *pair {
		p, ok := pairs[offset]
		if !ok {
			p = &pair{}
			pairs[offset] = p
			order = append(order, offset)
		}
		return p
	}
	for _, fn := range fresh {
		slot(fn.StartOffset).new = fn
	}
	for _, fn := range previous {
		slot(fn.StartOffset).old = fn
	}

	var cs ChangeSet
	for _, offset := range order {
		p := pairs[offset]
		switch {
		case p.old != nil && p.new != nil:
			d, err := DistanceContext(ctx, p.old.Body, p.new.Body)
			if err != nil {
				return ChangeSet{}, err
			}
			p.new.RecordedChangeScore = p.old.RecordedChangeScore + d
			if crossed(p.old.RecordedChangeScore, p.new.RecordedChangeScore, d, threshold) {
				cs.Updated = append(cs.Updated, p.new)
			} else {
				cs.Unchanged = append(cs.Unchanged, p.new)
			}
		case p.old != nil:
			cs.Deleted = append(cs.Deleted, p.old)
		default:
			p.new.RecordedChangeScore = 0
			cs.New = append(cs.New, p.new)
		}
	}

	SortByOffset(cs.New)
	SortByOffset(cs.Updated)
	SortByOffset(cs.Deleted)
	SortByOffset(cs.Unchanged)
	return cs, nil
}

// crossed reports whether a cycle that moved a score from prev to next by
// distance d took it over the threshold. A score already at or past the
// threshold stays pending without being reported again.
func crossed(prev, next, d, threshold int) bool {
	if d == 0 || next < threshold {
		return false
	}
	return prev < threshold || threshold <= 0
}
