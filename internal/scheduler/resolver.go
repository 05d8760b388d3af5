package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/resourcestore"
)

// SpecNode is the resource-spec AST: All | Named(id) | Group(name) |
// Alt(specs) | Exclude(spec, ids). Parsed once per task and reused
// across every tick the resolver visits it.
type SpecNode interface{ isSpecNode() }

type AllNode struct{}
type NamedNode struct{ ID string }
type GroupNode struct{ Name string }
type AltNode struct{ Specs []SpecNode }
type ExcludeNode struct {
	Inner    SpecNode
	Excluded []string
}

func (AllNode) isSpecNode()     {}
func (NamedNode) isSpecNode()   {}
func (GroupNode) isSpecNode()   {}
func (AltNode) isSpecNode()     {}
func (ExcludeNode) isSpecNode() {}

// ParseSpec parses a resource-spec string into an AST. Tokens are
// '|'-separated; a leading '!' marks an exclusion applied to the whole
// expression; a bare '*' is the wildcard; any other token is resolved
// against groups to decide Named vs Group.
func ParseSpec(text string, groups map[string][]string) (SpecNode, error) {
	var kept, excluded []string
	for _, raw := range strings.Split(text, "|") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "!") {
			excluded = append(excluded, strings.TrimSpace(strings.TrimPrefix(tok, "!")))
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("resource spec %q has no positive term", text)
	}

	var inner SpecNode
	if len(kept) == 1 {
		inner = resolveToken(kept[0], groups)
	} else {
		specs := make([]SpecNode, len(kept))
		for i, tok := range kept {
			specs[i] = resolveToken(tok, groups)
		}
		inner = AltNode{Specs: specs}
	}

	if len(excluded) > 0 {
		return ExcludeNode{Inner: inner, Excluded: excluded}, nil
	}
	return inner, nil
}

func resolveToken(tok string, groups map[string][]string) SpecNode {
	if tok == "*" {
		return AllNode{}
	}
	if _, ok := groups[tok]; ok {
		return GroupNode{Name: tok}
	}
	return NamedNode{ID: tok}
}

// Expand walks a parsed spec into an ordered, de-duplicated candidate
// resource list in config/declaration order.
func Expand(node SpecNode, taskID string, resourceOrder []string, resourceSet map[string]bool, groups map[string][]string) ([]string, error) {
	switch n := node.(type) {
	case AllNode:
		out := make([]string, len(resourceOrder))
		copy(out, resourceOrder)
		return out, nil
	case NamedNode:
		if !resourceSet[n.ID] {
			return nil, &domain.UnknownResourceError{TaskID: taskID, ResourceID: n.ID}
		}
		return []string{n.ID}, nil
	case GroupNode:
		members, ok := groups[n.Name]
		if !ok {
			return nil, &domain.UnknownGroupError{TaskID: taskID, Group: n.Name}
		}
		out := make([]string, len(members))
		copy(out, members)
		return out, nil
	case AltNode:
		seen := make(map[string]bool)
		var out []string
		for _, sub := range n.Specs {
			ids, err := Expand(sub, taskID, resourceOrder, resourceSet, groups)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
		return out, nil
	case ExcludeNode:
		ids, err := Expand(n.Inner, taskID, resourceOrder, resourceSet, groups)
		if err != nil {
			return nil, err
		}
		excluded := make(map[string]bool, len(n.Excluded))
		for _, id := range n.Excluded {
			excluded[id] = true
		}
		var out []string
		for _, id := range ids {
			if !excluded[id] {
				out = append(out, id)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("resourcestore: unhandled spec node %T", node)
	}
}

// Resolution is the resolver's verdict for one task at one tick.
type Resolution struct {
	ResourceIDs []string
	End         time.Time
	Deferred    bool // best candidate is busy with committed work right now
}

// ResolverContext carries the bundle-wide data the resolver needs
// beyond the resource store itself.
type ResolverContext struct {
	ResourceOrder []string
	ResourceSet   map[string]bool
	Groups        map[string][]string
	Specs         map[string]SpecNode // task id -> parsed spec, built once
}

// Resolve picks concrete resources for task at `now`, per §4.3: an
// explicit set requires every named resource simultaneously
// uncommitted right now; a spec expands to candidates and picks
// whichever completes earliest, DNS-tolerant, ties broken by
// candidate order. If the winner is occupied by committed work right
// now, the task is deferred rather than displacing that work.
func Resolve(task domain.Task, now time.Time, store *resourcestore.Store, ctx ResolverContext) (Resolution, error) {
	req := task.ResourceRequirement
	if req.Kind == domain.RequirementExplicit {
		return resolveExplicit(task, now, store, req.Explicit)
	}
	return resolveSpec(task, now, store, ctx)
}

func resolveExplicit(task domain.Task, now time.Time, store *resourcestore.Store, alloc []domain.ResourceAllocation) (Resolution, error) {
	ids := make([]string, len(alloc))
	var totalAlloc float64
	for i, a := range alloc {
		ids[i] = a.ResourceID
		totalAlloc += a.Allocation
	}
	if totalAlloc <= 0 {
		totalAlloc = 1
	}
	effort := task.DurationDays / totalAlloc

	if store.IsBusyAny(ids, now) {
		return Resolution{Deferred: true}, nil
	}
	end := store.CompletionTime(ids, now, effort)
	return Resolution{ResourceIDs: ids, End: end}, nil
}

func resolveSpec(task domain.Task, now time.Time, store *resourcestore.Store, ctx ResolverContext) (Resolution, error) {
	node, ok := ctx.Specs[task.ID]
	if !ok {
		return Resolution{}, fmt.Errorf("resolver: no parsed spec cached for task %q", task.ID)
	}
	candidates, err := Expand(node, task.ID, ctx.ResourceOrder, ctx.ResourceSet, ctx.Groups)
	if err != nil {
		return Resolution{}, err
	}
	if len(candidates) == 0 {
		candidates = []string{domain.UnassignedResourceID}
	}

	bestIdx := -1
	var bestEnd time.Time
	for i, cand := range candidates {
		end := store.CompletionTime([]string{cand}, now, task.DurationDays)
		if bestIdx == -1 || end.Before(bestEnd) {
			bestIdx, bestEnd = i, end
		}
	}
	winner := candidates[bestIdx]

	if store.Schedule(winner).IsBusy(now) {
		return Resolution{Deferred: true}, nil
	}
	return Resolution{ResourceIDs: []string{winner}, End: bestEnd}, nil
}
