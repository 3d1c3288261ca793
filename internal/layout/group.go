package layout

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"schedview/internal/model"
)

// ErrInvalidStrategy is returned for a grouping strategy outside the known set.
var ErrInvalidStrategy = errors.New("layout: invalid grouping strategy")

// Strategy selects how colliding schedules are split into lanes.
type Strategy int

const (
	// StrategyTransitive groups each seed with every schedule colliding with
	// it, one hop only, and splits each group into side-by-side lanes.
	StrategyTransitive Strategy = iota
	// StrategyChain packs schedules into greedy nearest-successor chains;
	// every chain is one lane across the whole period.
	StrategyChain
)

func (s Strategy) Valid() bool {
	return s == StrategyTransitive || s == StrategyChain
}

func (s Strategy) String() string {
	switch s {
	case StrategyTransitive:
		return "transitive"
	case StrategyChain:
		return "chain"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "transitive" or "chain".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transitive":
		return StrategyTransitive, nil
	case "chain":
		return StrategyChain, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}

// Collides reports a real overlap of two spans. Spans touching at a single
// instant (a.End == b.Start) do not collide; identical spans always do.
func Collides(a, b *model.Schedule) bool {
	if a.Start.Equal(b.Start) && a.End.Equal(b.End) {
		return true
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// GroupTransitive consumes schedules into blocks: the first remaining
// schedule seeds a block and every remaining schedule colliding with the
// seed joins it. Membership is tested against the seed only, so in a chain
// A-B-C where A and C do not collide, C starts its own block even though it
// overlaps B. That behavior is kept as is.
func GroupTransitive(schedules []*model.Schedule) [][]*model.Schedule {
	remaining := slices.Clone(schedules)
	var blocks [][]*model.Schedule

	for len(remaining) > 0 {
		seed := remaining[0]
		block := []*model.Schedule{seed}
		var rest []*model.Schedule
		for _, other := range remaining[1:] {
			if Collides(seed, other) {
				block = append(block, other)
			} else {
				rest = append(rest, other)
			}
		}
		blocks = append(blocks, block)
		remaining = rest
	}
	return blocks
}

// GroupChain sorts schedules by start (ties by description) and greedily
// chains each one to the pending schedule starting at or after its end with
// the smallest gap. Schedules in one chain never collide. Equal gaps go to
// the first candidate in sorted order.
func GroupChain(schedules []*model.Schedule) [][]*model.Schedule {
	pending := slices.Clone(schedules)
	slices.SortStableFunc(pending, func(a, b *model.Schedule) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.Description, b.Description)
	})

	var chains [][]*model.Schedule
	for len(pending) > 0 {
		var chain []*model.Schedule
		cur := pending[0]
		for cur != nil {
			chain = append(chain, cur)
			pending = slices.DeleteFunc(pending, func(s *model.Schedule) bool { return s == cur })
			cur = nearestSuccessor(pending, cur)
		}
		chains = append(chains, chain)
	}
	return chains
}

func nearestSuccessor(pending []*model.Schedule, cur *model.Schedule) *model.Schedule {
	var best *model.Schedule
	for _, s := range pending {
		if s.Start.Before(cur.End) {
			continue
		}
		if best == nil || s.Start.Before(best.Start) {
			best = s
		}
	}
	return best
}

// Placement is a schedule's lane inside its group of Lanes.
type Placement struct {
	Schedule *model.Schedule
	Lane     int
	Lanes    int
}

// Lanes assigns every schedule a lane according to strategy. An unknown
// strategy places nothing.
func Lanes(strategy Strategy, schedules []*model.Schedule) []Placement {
	var out []Placement
	switch strategy {
	case StrategyChain:
		chains := GroupChain(schedules)
		for i, chain := range chains {
			for _, s := range chain {
				out = append(out, Placement{Schedule: s, Lane: i, Lanes: len(chains)})
			}
		}
	case StrategyTransitive:
		for _, block := range GroupTransitive(schedules) {
			for i, s := range block {
				out = append(out, Placement{Schedule: s, Lane: i, Lanes: len(block)})
			}
		}
	}
	return out
}

// rows buckets placements by lane, keeping order within each lane.
func rows(placements []Placement) [][]Placement {
	n := 0
	for _, p := range placements {
		if p.Lane+1 > n {
			n = p.Lane + 1
		}
	}
	out := make([][]Placement, n)
	for _, p := range placements {
		out[p.Lane] = append(out[p.Lane], p)
	}
	return out
}
