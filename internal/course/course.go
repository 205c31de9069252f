package course

import (
	"github.com/shopspring/decimal"
)

// Instructor is the person attached to a course.
type Instructor struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	AvatarURL string `json:"avatarUrl" yaml:"avatar_url"`
	Location  string `json:"location" yaml:"location"`
	Email     string `json:"email" yaml:"email"`
}

// PlaceholderInstructor is used when the instructor pool is empty.
func PlaceholderInstructor() Instructor {
	return Instructor{Name: "Unknown Instructor"}
}

// Summary is a course as it appears in catalog listings.
// It is immutable once fetched; identity is ID.
type Summary struct {
	ID         int             `json:"id" yaml:"id"`
	Title      string          `json:"title" yaml:"title"`
	Thumbnail  string          `json:"thumbnail" yaml:"thumbnail"`
	Images     []string        `json:"images" yaml:"images"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Category   string          `json:"category" yaml:"category"`
	Instructor Instructor      `json:"instructor" yaml:"instructor"`
}

// Detail is a Summary plus the fields only the detail endpoint returns.
type Detail struct {
	Summary            `yaml:",inline"`
	Description        string  `json:"description" yaml:"description"`
	Brand              string  `json:"brand" yaml:"brand"`
	Rating             float64 `json:"rating" yaml:"rating"`
	Stock              int     `json:"stock" yaml:"stock"`
	DiscountPercentage float64 `json:"discountPercentage" yaml:"discount_percentage"`
}

// Page is one page of catalog results plus pagination metadata.
// HasNextPage is authoritative; do not infer it from len(Courses).
type Page struct {
	Courses     []Summary `json:"courses" yaml:"courses"`
	Page        int       `json:"page" yaml:"page"`
	TotalPages  int       `json:"totalPages" yaml:"total_pages"`
	TotalItems  int       `json:"totalItems" yaml:"total_items"`
	HasNextPage bool      `json:"hasNextPage" yaml:"has_next_page"`
}

// LoadMode says how a fetched page is applied to the visible list.
type LoadMode int

const (
	// ModeNone means no load is in progress.
	ModeNone LoadMode = iota
	// ModeInitial replaces the list.
	ModeInitial
	// ModeRefresh replaces the list and reports errors as refresh errors.
	ModeRefresh
	// ModeMore appends to the list.
	ModeMore
)

func (m LoadMode) String() string {
	switch m {
	case ModeInitial:
		return "initial"
	case ModeRefresh:
		return "refresh"
	case ModeMore:
		return "more"
	default:
		return "none"
	}
}

// IDs returns the ids of the given courses in order.
func IDs(courses []Summary) []int {
	ids := make([]int, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	return ids
}

// MergeByID merges fresh into existing. Existing entries keep their position,
// an id present in both takes the fresh value, and new ids are appended in
// the order they were fetched.
func MergeByID(existing, fresh []Summary) []Summary {
	merged := make([]Summary, 0, len(existing)+len(fresh))
	index := make(map[int]int, len(existing)+len(fresh))

	for _, c := range existing {
		if i, ok := index[c.ID]; ok {
			merged[i] = c
			continue
		}
		index[c.ID] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range fresh {
		if i, ok := index[c.ID]; ok {
			merged[i] = c
			continue
		}
		index[c.ID] = len(merged)
		merged = append(merged, c)
	}

	return merged
}
