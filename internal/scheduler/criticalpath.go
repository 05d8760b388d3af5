package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// runCriticalPath drives §4.6: every unscheduled task is a potential
// target; at each tick every target's critical path (its chain of
// unscheduled predecessors with zero CPM float) is computed, the union
// of eligible critical-path members is sorted by WSPT, and the best is
// committed. Targets and paths are recomputed from scratch each tick —
// behaviorally equivalent to incremental invalidation, just simpler.
func runCriticalPath(rs *runState) error {
	cfg := rs.bundle.Config.CriticalPath

	for len(rs.unscheduled) > 0 {
		critical, targetScore := criticalPathUnion(rs, cfg)

		var candidates []string
		for _, id := range rs.eligibleIDs() {
			if critical[id] {
				candidates = append(candidates, id)
			}
		}

		if len(candidates) == 0 {
			if !rs.advance() {
				return unschedulableError(rs)
			}
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			wa := float64(rs.priorities[a]) / math.Max(rs.tasksByID[a].DurationDays, minDuration)
			wb := float64(rs.priorities[b]) / math.Max(rs.tasksByID[b].DurationDays, minDuration)
			if wa != wb {
				return wa > wb
			}
			if targetScore[a] != targetScore[b] {
				return targetScore[a] > targetScore[b]
			}
			return a < b
		})

		committedAny := false
		for _, id := range candidates {
			res, err := resolveCriticalPathCandidate(rs, id, cfg)
			if err != nil {
				return err
			}
			if res.Deferred {
				continue
			}
			rs.commit(id, res)
			committedAny = true
			break
		}
		if !committedAny {
			if !rs.advance() {
				return unschedulableError(rs)
			}
		}
	}
	return nil
}

// criticalPathUnion computes, for every unscheduled task, its target
// score (§4.6 step 1) and CPM critical path (zero-float members), and
// returns the union of paths plus each task's best (max) target score
// across every target whose path it belongs to.
func criticalPathUnion(rs *runState, cfg config.CriticalPathConfig) (map[string]bool, map[string]float64) {
	union := make(map[string]bool)
	bestScore := make(map[string]float64)

	minDeadlineUrgency := minUrgencyAmongDeadlineTargets(rs, cfg)

	for id := range rs.unscheduled {
		path := criticalPathOf(rs, id, cfg)
		score := targetScore(rs, id, cfg, minDeadlineUrgency)
		for member := range path {
			union[member] = true
			if score > bestScore[member] {
				bestScore[member] = score
			}
		}
	}
	return union, bestScore
}

// targetScore implements §4.6 step 1: priority divided by total
// upstream effort, scaled by an exponential urgency term.
func targetScore(rs *runState, targetID string, cfg config.CriticalPathConfig, minDeadlineUrgency float64) float64 {
	nodes := ancestorsOf(rs, targetID)
	nodes[targetID] = true

	var totalEffort float64
	for id := range nodes {
		totalEffort += math.Max(rs.tasksByID[id].DurationDays, minDuration)
	}
	avgEffort := totalEffort / float64(len(nodes))

	var urgency float64
	if dl := rs.deadlines[targetID]; dl != nil {
		slack := dl.Sub(rs.now).Hours()/24 - totalEffort
		urgency = math.Exp(-math.Max(0, slack) / (cfg.K * math.Max(avgEffort, minDuration)))
	} else {
		urgency = math.Max(minDeadlineUrgency*cfg.NoDeadlineUrgencyMultiplier, cfg.UrgencyFloor)
	}

	priority := float64(rs.priorities[targetID])
	return (priority / math.Max(totalEffort, minDuration)) * urgency
}

// minUrgencyAmongDeadlineTargets computes the floor value no-deadline
// targets derive their urgency from.
func minUrgencyAmongDeadlineTargets(rs *runState, cfg config.CriticalPathConfig) float64 {
	min := math.Inf(1)
	for id := range rs.unscheduled {
		dl := rs.deadlines[id]
		if dl == nil {
			continue
		}
		nodes := ancestorsOf(rs, id)
		nodes[id] = true
		var totalEffort float64
		for n := range nodes {
			totalEffort += math.Max(rs.tasksByID[n].DurationDays, minDuration)
		}
		avgEffort := totalEffort / float64(len(nodes))
		slack := dl.Sub(rs.now).Hours()/24 - totalEffort
		u := math.Exp(-math.Max(0, slack) / (cfg.K * math.Max(avgEffort, minDuration)))
		if u < min {
			min = u
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// criticalPathOf computes the zero-slack members of target t's
// ancestor-induced subgraph via a two-pass CPM float calculation:
// earliest-finish forward from sources, latest-finish backward from t.
func criticalPathOf(rs *runState, targetID string, cfg config.CriticalPathConfig) map[string]bool {
	nodes := ancestorsOf(rs, targetID)
	nodes[targetID] = true

	order := topoAmong(rs, nodes)

	ef := make(map[string]float64, len(nodes))
	for _, id := range order {
		t := rs.tasksByID[id]
		dur := math.Max(t.DurationDays, minDuration)
		best := 0.0
		for _, dep := range t.Dependencies {
			if !nodes[dep.PredecessorID] {
				continue
			}
			if v := ef[dep.PredecessorID] + dep.LagDays; v > best {
				best = v
			}
		}
		ef[id] = best + dur
	}

	successors := make(map[string][]struct {
		id  string
		lag float64
	})
	for _, id := range order {
		for _, dep := range rs.tasksByID[id].Dependencies {
			if nodes[dep.PredecessorID] {
				successors[dep.PredecessorID] = append(successors[dep.PredecessorID], struct {
					id  string
					lag float64
				}{id, dep.LagDays})
			}
		}
	}

	lf := make(map[string]float64, len(nodes))
	lf[targetID] = ef[targetID]
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if id == targetID {
			continue
		}
		succs := successors[id]
		if len(succs) == 0 {
			lf[id] = ef[id]
			continue
		}
		best := math.Inf(1)
		for _, s := range succs {
			succDur := math.Max(rs.tasksByID[s.id].DurationDays, minDuration)
			v := lf[s.id] - succDur - s.lag
			if v < best {
				best = v
			}
		}
		lf[id] = best
	}

	const eps = 1e-9
	critical := make(map[string]bool)
	for id := range nodes {
		if math.Abs(lf[id]-ef[id]) < eps {
			critical[id] = true
		}
	}
	return critical
}

// ancestorsOf returns every unscheduled, non-completed transitive
// predecessor of t (t itself excluded).
func ancestorsOf(rs *runState, targetID string) map[string]bool {
	seen := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		for _, dep := range rs.tasksByID[id].Dependencies {
			if rs.bundle.CompletedTaskIDs[dep.PredecessorID] {
				continue
			}
			if !rs.unscheduled[dep.PredecessorID] {
				continue // already scheduled: no longer contends for capacity
			}
			if !seen[dep.PredecessorID] {
				seen[dep.PredecessorID] = true
				visit(dep.PredecessorID)
			}
		}
	}
	visit(targetID)
	return seen
}

// topoAmong returns nodes in topological order restricted to the given subset.
func topoAmong(rs *runState, nodes map[string]bool) []string {
	indegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string)
	for id := range nodes {
		indegree[id] = 0
	}
	for id := range nodes {
		for _, dep := range rs.tasksByID[id].Dependencies {
			if nodes[dep.PredecessorID] {
				indegree[id]++
				successors[dep.PredecessorID] = append(successors[dep.PredecessorID], id)
			}
		}
	}
	var queue []string
	for id := range nodes {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)
	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		var freed []string
		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				freed = append(freed, succ)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}
	return order
}

// resolveCriticalPathCandidate resolves id's resources for this tick.
// For explicit requirements, or when rollout_enabled is off, it just
// defers to Resolve. For a spec requirement with rollout enabled, any
// candidates whose completion time ties the best one (within
// rollout_score_ratio_threshold) are scored by downstream contention
// instead of taken in first-candidate order, so the winner is the
// least-contended resource among the tied set.
func resolveCriticalPathCandidate(rs *runState, id string, cfg config.CriticalPathConfig) (Resolution, error) {
	task := rs.tasksByID[id]
	if !cfg.RolloutEnabled || task.ResourceRequirement.Kind == domain.RequirementExplicit {
		return Resolve(*task, rs.now, rs.store, rs.resolverCtx)
	}

	ctx := rs.resolverCtx
	node, ok := ctx.Specs[id]
	if !ok {
		return Resolve(*task, rs.now, rs.store, rs.resolverCtx)
	}
	candidates, err := Expand(node, id, ctx.ResourceOrder, ctx.ResourceSet, ctx.Groups)
	if err != nil {
		return Resolution{}, err
	}
	if len(candidates) < 2 {
		return Resolve(*task, rs.now, rs.store, rs.resolverCtx)
	}

	type scoredCandidate struct {
		id  string
		end time.Time
	}
	scored := make([]scoredCandidate, len(candidates))
	best := rs.store.CompletionTime(candidates[:1], rs.now, task.DurationDays)
	for i, cand := range candidates {
		end := rs.store.CompletionTime([]string{cand}, rs.now, task.DurationDays)
		if end.Before(best) {
			best = end
		}
		scored[i] = scoredCandidate{cand, end}
	}
	bestEffort := math.Max(best.Sub(rs.now).Hours()/24, minDuration)

	var tied []scoredCandidate
	for _, c := range scored {
		if rs.store.Schedule(c.id).IsBusy(rs.now) {
			continue
		}
		effort := math.Max(c.end.Sub(rs.now).Hours()/24, minDuration)
		if bestEffort/effort >= cfg.RolloutScoreRatioThreshold {
			tied = append(tied, c)
		}
	}
	if len(tied) < 2 {
		return Resolve(*task, rs.now, rs.store, rs.resolverCtx)
	}

	bestIdx := -1
	var bestScore float64
	for i, c := range tied {
		score := contentionScore(rs, c.id, c.end)
		if bestIdx == -1 || score < bestScore {
			bestIdx, bestScore = i, score
		}
	}
	winner := tied[bestIdx]
	return Resolution{ResourceIDs: []string{winner.id}, End: winner.end}, nil
}

// contentionScore estimates how much claiming resourceID until
// busyUntil delays other unscheduled tasks that could also use it,
// weighted by priority. Lower is better.
func contentionScore(rs *runState, resourceID string, busyUntil time.Time) float64 {
	occupiedDays := math.Max(busyUntil.Sub(rs.now).Hours()/24, 0)
	if occupiedDays == 0 {
		return 0
	}

	var score float64
	for uid := range rs.unscheduled {
		if !resourcesOverlap(rs, uid, []string{resourceID}) {
			continue
		}
		score += float64(rs.priorities[uid]) * occupiedDays
	}
	return score
}
