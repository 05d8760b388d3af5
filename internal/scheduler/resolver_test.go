package scheduler

import (
	"testing"

	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/resourcestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec_Wildcard(t *testing.T) {
	node, err := ParseSpec("*", nil)
	require.NoError(t, err)
	assert.Equal(t, AllNode{}, node)
}

func TestParseSpec_NamedVsGroup(t *testing.T) {
	groups := map[string][]string{"design": {"alice", "bob"}}
	node, err := ParseSpec("design", groups)
	require.NoError(t, err)
	assert.Equal(t, GroupNode{Name: "design"}, node)

	node, err = ParseSpec("alice", groups)
	require.NoError(t, err)
	assert.Equal(t, NamedNode{ID: "alice"}, node)
}

func TestParseSpec_AltAndExclude(t *testing.T) {
	node, err := ParseSpec("alice|bob|!bob", nil)
	require.NoError(t, err)
	exclude, ok := node.(ExcludeNode)
	require.True(t, ok)
	assert.Equal(t, []string{"bob"}, exclude.Excluded)
	alt, ok := exclude.Inner.(AltNode)
	require.True(t, ok)
	assert.Len(t, alt.Specs, 2)
}

func TestParseSpec_EmptyIsError(t *testing.T) {
	_, err := ParseSpec("!alice", nil)
	assert.Error(t, err)
}

func TestExpand_GroupOrderPreserved(t *testing.T) {
	groups := map[string][]string{"design": {"carol", "alice"}}
	node := GroupNode{Name: "design"}
	ids, err := Expand(node, "t1", []string{"alice", "carol"}, map[string]bool{"alice": true, "carol": true}, groups)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "alice"}, ids)
}

func TestExpand_UnknownResourceErrors(t *testing.T) {
	_, err := Expand(NamedNode{ID: "ghost"}, "t1", nil, map[string]bool{}, nil)
	var unknownErr *domain.UnknownResourceError
	require.ErrorAs(t, err, &unknownErr)
}

func TestExpand_ExcludeRemovesMember(t *testing.T) {
	node := ExcludeNode{Inner: AllNode{}, Excluded: []string{"bob"}}
	ids, err := Expand(node, "t1", []string{"alice", "bob", "carol"}, map[string]bool{"alice": true, "bob": true, "carol": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, ids)
}

func TestResolve_ExplicitSetDefersWhenBusy(t *testing.T) {
	store := resourcestore.New([]domain.Resource{{ID: "r1"}}, nil)
	require.NoError(t, store.Insert([]string{"r1"}, day("2026-07-01"), day("2026-07-03")))

	task := domain.Task{ID: "t1", DurationDays: 2, ResourceRequirement: domain.ResourceRequirement{
		Kind: domain.RequirementExplicit, Explicit: []domain.ResourceAllocation{{ResourceID: "r1", Allocation: 1}},
	}}
	res, err := Resolve(task, day("2026-07-02"), store, ResolverContext{})
	require.NoError(t, err)
	assert.True(t, res.Deferred)
}

func TestResolve_SpecPicksEarliestCompletingCandidate(t *testing.T) {
	store := resourcestore.New([]domain.Resource{{ID: "alice"}, {ID: "bob"}}, nil)
	require.NoError(t, store.Insert([]string{"alice"}, day("2026-08-01"), day("2026-08-05")))

	ctx := ResolverContext{
		ResourceOrder: []string{"alice", "bob"},
		ResourceSet:   map[string]bool{"alice": true, "bob": true},
		Specs:         map[string]SpecNode{"t1": AllNode{}},
	}
	task := domain.Task{ID: "t1", DurationDays: 2, ResourceRequirement: domain.ResourceRequirement{Kind: domain.RequirementSpec, SpecText: "*"}}

	res, err := Resolve(task, day("2026-08-01"), store, ctx)
	require.NoError(t, err)
	assert.False(t, res.Deferred)
	assert.Equal(t, []string{"bob"}, res.ResourceIDs)
}

func TestResolve_SpecResolvesToEmptyUsesUnassigned(t *testing.T) {
	ctx := ResolverContext{
		ResourceOrder: nil,
		ResourceSet:   map[string]bool{},
		Specs:         map[string]SpecNode{"t1": ExcludeNode{Inner: AllNode{}, Excluded: []string{}}},
	}
	store := resourcestore.New(nil, nil)
	task := domain.Task{ID: "t1", DurationDays: 1, ResourceRequirement: domain.ResourceRequirement{Kind: domain.RequirementSpec, SpecText: "*"}}

	res, err := Resolve(task, day("2026-09-01"), store, ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.UnassignedResourceID}, res.ResourceIDs)
}
