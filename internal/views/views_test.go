package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/artpar/courseware/internal/course"
	"github.com/artpar/courseware/internal/idset"
	"github.com/artpar/courseware/internal/state"
)

func catalog(ids ...int) []course.Summary {
	out := make([]course.Summary, len(ids))
	for i, id := range ids {
		out[i] = course.Summary{ID: id}
	}
	return out
}

func TestSelectors(t *testing.T) {
	all := catalog(1, 2, 3, 4, 5, 6)
	bookmarked := idset.Of(2, 6, 42)
	enrolled := idset.Of(1, 2, 3, 4)
	completed := idset.Of(1, 2, 5)

	assert.Equal(t, []int{2, 6}, course.IDs(Bookmarked(all, bookmarked)))
	assert.Equal(t, []int{1, 2, 3, 4}, course.IDs(Enrolled(all, enrolled)))
	assert.Equal(t, []int{1, 2, 5}, course.IDs(Completed(all, completed)))
	assert.Equal(t, []int{3, 4}, course.IDs(ActiveEnrolled(all, enrolled, completed)))
	assert.Equal(t, []int{5, 6}, course.IDs(Recommended(all, enrolled)))
	assert.Equal(t, 4, EnrolledCount(enrolled))
	assert.Equal(t, 3, CompletedCount(completed))
}

func TestSelectors_Empty(t *testing.T) {
	assert.NotNil(t, Bookmarked(nil, idset.Of(1)))
	assert.Empty(t, Bookmarked(nil, idset.Of(1)))
	assert.Equal(t, []int{1, 2}, course.IDs(Recommended(catalog(1, 2), nil)))
	assert.Empty(t, ActiveEnrolled(catalog(1, 2), nil, nil))
}

func TestSelectors_KeepCatalogOrder(t *testing.T) {
	all := catalog(9, 3, 7)
	assert.Equal(t, []int{9, 3, 7}, course.IDs(Enrolled(all, idset.Of(7, 3, 9))))
}

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		name      string
		enrolled  idset.Set
		completed idset.Set
		want      int
	}{
		{"no enrollments", idset.Of(), idset.Of(1, 2, 3), 0},
		{"nil sets", nil, nil, 0},
		{"half", idset.Of(1, 2, 3, 4), idset.Of(1, 2, 5), 50},
		{"completed outside enrolled ignored", idset.Of(1, 2), idset.Of(3, 4, 5), 0},
		{"all", idset.Of(1, 2), idset.Of(2, 1), 100},
		{"one third rounds down", idset.Of(1, 2, 3), idset.Of(1), 33},
		{"two thirds rounds up", idset.Of(1, 2, 3), idset.Of(1, 2), 67},
		{"half rounds up", idset.Of(1, 2, 3, 4, 5, 6, 7, 8), idset.Of(1), 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionPercentage(tt.enrolled, tt.completed))
		})
	}
}

func TestActiveEnrolledDisjointFromCompleted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfDistinct(rapid.IntRange(1, 30), rapid.ID[int]).Draw(t, "catalog")
		enrolled := idset.Of(rapid.SliceOf(rapid.IntRange(1, 35)).Draw(t, "enrolled")...)
		completed := idset.Of(rapid.SliceOf(rapid.IntRange(1, 35)).Draw(t, "completed")...)
		all := catalog(ids...)

		done := map[int]bool{}
		for _, c := range Completed(all, completed) {
			done[c.ID] = true
		}
		for _, c := range ActiveEnrolled(all, enrolled, completed) {
			if done[c.ID] {
				t.Fatalf("course %d is both active and completed", c.ID)
			}
			if !enrolled.Has(c.ID) {
				t.Fatalf("course %d is active but not enrolled", c.ID)
			}
		}

		for _, c := range Recommended(all, enrolled) {
			if enrolled.Has(c.ID) {
				t.Fatalf("course %d is recommended but enrolled", c.ID)
			}
		}

		p := CompletionPercentage(enrolled, completed)
		if p < 0 || p > 100 {
			t.Fatalf("percentage out of range: %d", p)
		}
	})
}

func TestBuild(t *testing.T) {
	snap := state.Snapshot{
		Courses:    catalog(1, 2, 3, 4, 5),
		Bookmarked: idset.Of(5),
		Enrolled:   idset.Of(1, 2, 3, 4),
		Completed:  idset.Of(1, 2, 5),
		Version:    7,
	}

	d := Build(snap)
	assert.Equal(t, []int{5}, course.IDs(d.Bookmarked))
	assert.Equal(t, []int{3, 4}, course.IDs(d.ActiveEnrolled))
	assert.Equal(t, []int{5}, course.IDs(d.Recommended))
	assert.Equal(t, 4, d.EnrolledCount)
	assert.Equal(t, 3, d.CompletedCount)
	assert.Equal(t, 50, d.CompletionPercentage)
	assert.Equal(t, uint64(7), d.Version)
}

func TestMemo(t *testing.T) {
	var m Memo
	snap := state.Snapshot{Courses: catalog(1, 2), Enrolled: idset.Of(1), Version: 1}

	first := m.Get(snap)
	assert.Equal(t, []int{1}, course.IDs(first.Enrolled))

	// Same version: the cached dashboard is returned.
	snap.Enrolled = idset.Of(2)
	assert.Equal(t, []int{1}, course.IDs(m.Get(snap).Enrolled))

	snap.Version = 2
	assert.Equal(t, []int{2}, course.IDs(m.Get(snap).Enrolled))
	assert.Equal(t, Build(snap), m.Get(snap))
}
