package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

const valueEpsilon = 1e-9

// CorrelationRule couples a primary position with same-team correlated
// positions (e.g. QB with his pass catchers).
type CorrelationRule struct {
	PrimaryPosition     string   `json:"primary_position"`
	CorrelatedPositions []string `json:"correlated_positions"`
	MinCorrelated       int      `json:"min_correlated"`
}

// TeamStackRule requires at least one team stack of MinCount players among
// the given positions, and caps any single-team stack at MaxCount.
type TeamStackRule struct {
	Positions []string `json:"positions"`
	MinCount  int      `json:"min_count"`
	MaxCount  int      `json:"max_count"`
}

// Constraints is the full constraint set fed to Optimize. Exposure bounds are
// fractions over the returned lineup set, keyed by base player id.
type Constraints struct {
	SalaryCap        int                `json:"salary_cap"`
	MinSalaryUsage   float64            `json:"min_salary_usage"`
	MinDistinctTeams int                `json:"min_distinct_teams"`
	Randomness       float64            `json:"randomness"`
	Seed             int64              `json:"seed"`
	MinExposure      map[string]float64 `json:"min_exposure"`
	MaxExposure      map[string]float64 `json:"max_exposure"`
	Correlations     []CorrelationRule  `json:"correlations"`
	TeamStacks       []TeamStackRule    `json:"team_stacks"`
}

type poolEntry struct {
	player models.Player
	value  float64 // perturbed objective value for the current lineup
}

type searchState struct {
	slots       models.SlotList
	bySlot      [][]int // candidate pool indices per slot, value-ordered
	pool        []poolEntry
	cons        Constraints
	locked      map[string]bool // base ids that must appear in this lineup
	banned      map[string]bool // base ids excluded from this lineup
	usedHashes  map[string]bool
	suffixBest  []float64 // optimistic value bound for slots i..end
	suffixMinSw []int     // minimum added salary for slots i..end

	chosen     []int
	chosenBase map[string]bool
	curSalary  int
	curValue   float64

	best       []int
	bestValue  float64
	bestSalary int
	bestKey    string

	deadline time.Time
	nodes    int
	timedOut bool
}

// Optimize produces up to count salary-feasible, slot-eligible, pairwise
// distinct lineups maximizing projected points under the constraint set.
// Randomness perturbs the objective between lineups to diversify the set;
// a fixed seed yields a fixed output. The context deadline is the time
// budget: expiry aborts the whole request with a TimeoutError.
func Optimize(ctx context.Context, players []models.Player, slots models.SlotList, cons Constraints, count int) ([]models.Lineup, error) {
	if count <= 0 {
		return nil, &InfeasibleError{Reason: "requested lineup count must be positive"}
	}

	eligible := make([]models.Player, 0, len(players))
	for _, p := range players {
		if p.ProjectedPoints <= 0 || p.InjuryStatus.RulesOut() {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) < len(slots) {
		return nil, &InsufficientPlayerPoolError{Eligible: len(eligible), Required: len(slots)}
	}

	// Deterministic base order before any value sort.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].Key() < eligible[j].Key() })

	rng := rand.New(rand.NewSource(cons.Seed))
	usage := make(map[string]int, len(eligible))
	usedHashes := make(map[string]bool, count)
	lineups := make([]models.Lineup, 0, count)

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(24 * time.Hour)
	}
	budget := time.Until(deadline)

	for k := 0; k < count; k++ {
		pool := make([]poolEntry, len(eligible))
		for i, p := range eligible {
			value := p.ProjectedPoints
			if cons.Randomness > 0 {
				value *= 1 + cons.Randomness*(rng.Float64()*2-1)
			}
			pool[i] = poolEntry{player: p, value: value}
		}

		banned := make(map[string]bool)
		locked := make(map[string]bool)
		remaining := count - k
		for i := range pool {
			base := pool[i].player.BaseID()
			if max, ok := cons.MaxExposure[base]; ok {
				if float64(usage[base]+1)/float64(count) > max+valueEpsilon {
					banned[base] = true
				}
			}
			if min, ok := cons.MinExposure[base]; ok && min > 0 {
				needed := int(math.Ceil(min*float64(count))) - usage[base]
				if needed >= remaining && needed > 0 && !banned[base] {
					locked[base] = true
				}
			}
		}

		st := newSearchState(pool, slots, cons, locked, banned, usedHashes, deadline)
		st.search(0)
		if st.timedOut {
			return nil, &TimeoutError{Budget: budget}
		}
		if st.best == nil {
			if k == 0 {
				return nil, &InfeasibleError{Reason: "no assignment satisfies the constraint set"}
			}
			return nil, &InfeasibleError{
				Reason: "constraint set cannot produce the requested number of distinct lineups",
			}
		}

		lineup := st.assemble()
		usedHashes[keyHash(st.best, pool)] = true
		for _, idx := range st.best {
			usage[pool[idx].player.BaseID()]++
		}
		lineups = append(lineups, lineup)
	}

	logrus.WithFields(logrus.Fields{
		"lineups": len(lineups),
		"pool":    len(eligible),
		"slots":   len(slots),
	}).Debug("Optimization complete")

	return lineups, nil
}

func newSearchState(pool []poolEntry, slots models.SlotList, cons Constraints, locked, banned, usedHashes map[string]bool, deadline time.Time) *searchState {
	st := &searchState{
		slots:      slots,
		pool:       pool,
		cons:       cons,
		locked:     locked,
		banned:     banned,
		usedHashes: usedHashes,
		chosen:     make([]int, 0, len(slots)),
		chosenBase: make(map[string]bool, len(slots)),
		bestValue:  math.Inf(-1),
		deadline:   deadline,
	}

	st.bySlot = make([][]int, len(slots))
	for s, slot := range slots {
		var cands []int
		for i := range pool {
			if banned[pool[i].player.BaseID()] {
				continue
			}
			if slot.Accepts(&pool[i].player) {
				cands = append(cands, i)
			}
		}
		// Locked players first, then by perturbed value, then id for
		// deterministic order.
		sort.Slice(cands, func(a, b int) bool {
			la := locked[pool[cands[a]].player.BaseID()]
			lb := locked[pool[cands[b]].player.BaseID()]
			if la != lb {
				return la
			}
			if pool[cands[a]].value != pool[cands[b]].value {
				return pool[cands[a]].value > pool[cands[b]].value
			}
			return pool[cands[a]].player.Key() < pool[cands[b]].player.Key()
		})
		st.bySlot[s] = cands
	}

	// Optimistic value and minimum salary per slot suffix, for pruning.
	st.suffixBest = make([]float64, len(slots)+1)
	st.suffixMinSw = make([]int, len(slots)+1)
	for s := len(slots) - 1; s >= 0; s-- {
		bestVal := 0.0
		minSal := math.MaxInt32
		for _, i := range st.bySlot[s] {
			if pool[i].value > bestVal {
				bestVal = pool[i].value
			}
			if pool[i].player.Salary < minSal {
				minSal = pool[i].player.Salary
			}
		}
		if len(st.bySlot[s]) == 0 {
			minSal = 0
		}
		st.suffixBest[s] = st.suffixBest[s+1] + bestVal
		st.suffixMinSw[s] = st.suffixMinSw[s+1] + minSal
	}

	return st
}

func (st *searchState) search(slot int) {
	st.nodes++
	if st.nodes&1023 == 0 && time.Now().After(st.deadline) {
		st.timedOut = true
		return
	}
	if st.timedOut {
		return
	}

	if slot == len(st.slots) {
		st.complete()
		return
	}

	// Not enough slots left to place every locked player.
	if st.lockedOutstanding() > len(st.slots)-slot {
		return
	}
	// Salary and value bounds.
	if st.curSalary+st.suffixMinSw[slot] > st.cons.SalaryCap {
		return
	}
	if st.curValue+st.suffixBest[slot] <= st.bestValue+valueEpsilon && !st.couldTieBreak(slot) {
		return
	}

	for _, i := range st.bySlot[slot] {
		base := st.pool[i].player.BaseID()
		if st.chosenBase[base] {
			continue
		}
		if st.curSalary+st.pool[i].player.Salary > st.cons.SalaryCap {
			continue
		}

		st.chosen = append(st.chosen, i)
		st.chosenBase[base] = true
		st.curSalary += st.pool[i].player.Salary
		st.curValue += st.pool[i].value

		st.search(slot + 1)

		st.chosen = st.chosen[:len(st.chosen)-1]
		delete(st.chosenBase, base)
		st.curSalary -= st.pool[i].player.Salary
		st.curValue -= st.pool[i].value

		if st.timedOut {
			return
		}
	}
}

// couldTieBreak keeps the search alive when the remaining bound exactly ties
// the incumbent, since a tied completion may still win on salary or id order.
func (st *searchState) couldTieBreak(slot int) bool {
	return math.Abs(st.curValue+st.suffixBest[slot]-st.bestValue) <= valueEpsilon
}

func (st *searchState) lockedOutstanding() int {
	n := 0
	for base := range st.locked {
		if !st.chosenBase[base] {
			n++
		}
	}
	return n
}

func (st *searchState) complete() {
	if st.lockedOutstanding() > 0 {
		return
	}
	if st.cons.MinSalaryUsage > 0 {
		if float64(st.curSalary) < st.cons.MinSalaryUsage*float64(st.cons.SalaryCap)-valueEpsilon {
			return
		}
	}
	if !st.checkTeams() || !st.checkCorrelations() || !st.checkTeamStacks() {
		return
	}
	if st.usedHashes[keyHash(st.chosen, st.pool)] {
		return
	}

	if st.best != nil {
		diff := st.curValue - st.bestValue
		switch {
		case diff > valueEpsilon:
			// strictly better
		case diff < -valueEpsilon:
			return
		default:
			// Tie-break: lower salary, then smallest sorted id set.
			if st.curSalary > st.bestSalary {
				return
			}
			if st.curSalary == st.bestSalary && sortedKey(st.chosen, st.pool) >= st.bestKey {
				return
			}
		}
	}

	st.best = make([]int, len(st.chosen))
	copy(st.best, st.chosen)
	st.bestValue = st.curValue
	st.bestSalary = st.curSalary
	st.bestKey = sortedKey(st.chosen, st.pool)
}

func (st *searchState) checkTeams() bool {
	if st.cons.MinDistinctTeams <= 1 {
		return true
	}
	teams := make(map[string]bool)
	for _, i := range st.chosen {
		teams[st.pool[i].player.Team] = true
	}
	return len(teams) >= st.cons.MinDistinctTeams
}

func (st *searchState) checkCorrelations() bool {
	for _, rule := range st.cons.Correlations {
		for _, i := range st.chosen {
			if st.pool[i].player.Position != rule.PrimaryPosition {
				continue
			}
			team := st.pool[i].player.Team
			correlated := 0
			for _, j := range st.chosen {
				if j == i || st.pool[j].player.Team != team {
					continue
				}
				for _, pos := range rule.CorrelatedPositions {
					if st.pool[j].player.Position == pos {
						correlated++
						break
					}
				}
			}
			if correlated < rule.MinCorrelated {
				return false
			}
		}
	}
	return true
}

func (st *searchState) checkTeamStacks() bool {
	for _, rule := range st.cons.TeamStacks {
		posSet := make(map[string]bool, len(rule.Positions))
		for _, p := range rule.Positions {
			posSet[p] = true
		}
		counts := make(map[string]int)
		for _, i := range st.chosen {
			if posSet[st.pool[i].player.Position] {
				counts[st.pool[i].player.Team]++
			}
		}
		if rule.MaxCount > 0 {
			for _, c := range counts {
				if c > rule.MaxCount {
					return false
				}
			}
		}
		if rule.MinCount > 0 {
			found := false
			for _, c := range counts {
				if c >= rule.MinCount {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (st *searchState) assemble() models.Lineup {
	lineup := models.Lineup{
		Status:  models.StatusGenerated,
		Players: make([]models.LineupPlayer, len(st.best)),
	}
	for s, i := range st.best {
		p := st.pool[i].player
		lineup.Players[s] = models.LineupPlayer{
			SlotIndex:       s,
			SlotName:        st.slots[s].Name,
			PlayerID:        p.ID,
			PlayerName:      p.Name,
			Salary:          p.Salary,
			ProjectedPoints: p.ProjectedPoints,
		}
	}
	lineup.RecalculateTotals()
	lineup.ComputeHash()
	return lineup
}

func sortedKey(chosen []int, pool []poolEntry) string {
	keys := make([]string, len(chosen))
	for i, idx := range chosen {
		keys[i] = pool[idx].player.Key()
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func keyHash(chosen []int, pool []poolEntry) string {
	keys := make([]string, len(chosen))
	for i, idx := range chosen {
		keys[i] = pool[idx].player.Key()
	}
	return models.HashPlayerIDs(keys)
}
