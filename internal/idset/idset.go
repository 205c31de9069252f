// Package idset holds the deduplicated course id collections a user builds up
// by bookmarking, enrolling and completing courses.
package idset

import (
	"io"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Kind names one of the persisted id-sets.
type Kind int

const (
	Bookmarked Kind = iota
	Enrolled
	Completed
)

// Kinds lists every id-set kind.
var Kinds = []Kind{Bookmarked, Enrolled, Completed}

// Key returns the storage key the set is persisted under.
func (k Kind) Key() string {
	switch k {
	case Bookmarked:
		return "bookmarked_courses"
	case Enrolled:
		return "enrolled_courses"
	case Completed:
		return "completed_courses"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case Bookmarked:
		return "bookmarked"
	case Enrolled:
		return "enrolled"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Set is a list of unique course ids. Order carries no meaning.
// Methods never modify the receiver; they return a new Set.
type Set []int

// Of builds a Set from ids, dropping duplicates.
func Of(ids ...int) Set {
	s := make(Set, 0, len(ids))
	for _, id := range ids {
		if !s.Has(id) {
			s = append(s, id)
		}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id int) bool {
	return slices.Contains(s, id)
}

// Len returns the number of ids.
func (s Set) Len() int {
	return len(s)
}

// Toggle removes id if present and adds it otherwise.
func (s Set) Toggle(id int) (next Set, added bool) {
	if s.Has(id) {
		next = make(Set, 0, len(s)-1)
		for _, v := range s {
			if v != id {
				next = append(next, v)
			}
		}
		return next, false
	}
	next = make(Set, 0, len(s)+1)
	next = append(next, s...)
	return append(next, id), true
}

// Add adds id. When id is already present it returns s and false.
func (s Set) Add(id int) (next Set, changed bool) {
	if s.Has(id) {
		return s, false
	}
	next = make(Set, 0, len(s)+1)
	next = append(next, s...)
	return append(next, id), true
}

// Intersect returns the ids present in both sets, in s's order.
func (s Set) Intersect(other Set) Set {
	out := make(Set, 0)
	for _, id := range s {
		if other.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns an independent copy; nil becomes an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Encode serializes the set as a JSON array of integers.
func (s Set) Encode() string {
	var e jx.Encoder
	e.ArrStart()
	for _, id := range s {
		e.Int(id)
	}
	e.ArrEnd()
	return string(e.Bytes())
}

// Decode parses a JSON integer array. Empty input yields an empty set
// and duplicate ids are dropped.
func Decode(raw string) (Set, error) {
	if raw == "" {
		return Set{}, nil
	}
	s := Set{}
	d := jx.DecodeStr(raw)
	var err error
	if d.Next() == jx.Null {
		err = d.Null()
	} else {
		err = d.Arr(func(d *jx.Decoder) error {
			id, err := d.Int()
			if err != nil {
				return err
			}
			if !s.Has(id) {
				s = append(s, id)
			}
			return nil
		})
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode id set")
	}
	// Anything but a clean end of input after the value is corruption.
	if err := d.Skip(); !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errors.New("decode id set: unexpected data after array")
	}
	return s, nil
}
