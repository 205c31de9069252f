// Package views derives the lists and statistics the screens show from a
// state snapshot. Every function is pure.
package views

import (
	"sync"

	"github.com/artpar/courseware/internal/course"
	"github.com/artpar/courseware/internal/idset"
	"github.com/artpar/courseware/internal/state"
)

func lookup(ids idset.Set) map[int]struct{} {
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func filter(courses []course.Summary, keep func(id int) bool) []course.Summary {
	out := make([]course.Summary, 0)
	for _, c := range courses {
		if keep(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

func in(ids idset.Set) func(int) bool {
	m := lookup(ids)
	return func(id int) bool {
		_, ok := m[id]
		return ok
	}
}

// Bookmarked returns the courses whose id is bookmarked.
func Bookmarked(courses []course.Summary, bookmarked idset.Set) []course.Summary {
	return filter(courses, in(bookmarked))
}

// Enrolled returns the courses whose id is enrolled.
func Enrolled(courses []course.Summary, enrolled idset.Set) []course.Summary {
	return filter(courses, in(enrolled))
}

// Completed returns the courses whose id is completed, enrolled or not.
func Completed(courses []course.Summary, completed idset.Set) []course.Summary {
	return filter(courses, in(completed))
}

// ActiveEnrolled returns enrolled courses that are not completed.
func ActiveEnrolled(courses []course.Summary, enrolled, completed idset.Set) []course.Summary {
	isEnrolled, isCompleted := in(enrolled), in(completed)
	return filter(courses, func(id int) bool {
		return isEnrolled(id) && !isCompleted(id)
	})
}

// Recommended returns the courses not enrolled in.
func Recommended(courses []course.Summary, enrolled idset.Set) []course.Summary {
	isEnrolled := in(enrolled)
	return filter(courses, func(id int) bool {
		return !isEnrolled(id)
	})
}

// EnrolledCount is the number of enrolled ids.
func EnrolledCount(enrolled idset.Set) int {
	return enrolled.Len()
}

// CompletedCount is the number of completed ids, including ones not enrolled.
func CompletedCount(completed idset.Set) int {
	return completed.Len()
}

// CompletionPercentage is the share of enrolled ids that are completed,
// rounded half up. Completed ids that are not enrolled do not count.
func CompletionPercentage(enrolled, completed idset.Set) int {
	n := enrolled.Len()
	if n == 0 {
		return 0
	}
	done := enrolled.Intersect(completed).Len()
	// round(100*done/n) with halves rounded up, in integers.
	return (200*done + n) / (2 * n)
}

// Dashboard is every view at once.
type Dashboard struct {
	Bookmarked     []course.Summary `json:"bookmarked" yaml:"bookmarked"`
	Enrolled       []course.Summary `json:"enrolled" yaml:"enrolled"`
	Completed      []course.Summary `json:"completed" yaml:"completed"`
	ActiveEnrolled []course.Summary `json:"activeEnrolled" yaml:"active_enrolled"`
	Recommended    []course.Summary `json:"recommended" yaml:"recommended"`

	EnrolledCount        int `json:"enrolledCount" yaml:"enrolled_count"`
	CompletedCount       int `json:"completedCount" yaml:"completed_count"`
	CompletionPercentage int `json:"completionPercentage" yaml:"completion_percentage"`

	Version uint64 `json:"version" yaml:"version"`
}

// Build derives the dashboard for snap.
func Build(snap state.Snapshot) Dashboard {
	return Dashboard{
		Bookmarked:           Bookmarked(snap.Courses, snap.Bookmarked),
		Enrolled:             Enrolled(snap.Courses, snap.Enrolled),
		Completed:            Completed(snap.Courses, snap.Completed),
		ActiveEnrolled:       ActiveEnrolled(snap.Courses, snap.Enrolled, snap.Completed),
		Recommended:          Recommended(snap.Courses, snap.Enrolled),
		EnrolledCount:        EnrolledCount(snap.Enrolled),
		CompletedCount:       CompletedCount(snap.Completed),
		CompletionPercentage: CompletionPercentage(snap.Enrolled, snap.Completed),
		Version:              snap.Version,
	}
}

// Memo caches the last dashboard built, keyed by snapshot version. Use one
// Memo per state.Store.
type Memo struct {
	mu    sync.Mutex
	built bool
	dash  Dashboard
}

// Get returns the dashboard for snap, rebuilding it only when the version
// changed.
func (m *Memo) Get(snap state.Snapshot) Dashboard {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.built && m.dash.Version == snap.Version {
		return m.dash
	}
	m.dash = Build(snap)
	m.built = true
	return m.dash
}
