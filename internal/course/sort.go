package course

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrInvalidSort is returned by ParseSort for unknown sort names.
var ErrInvalidSort = errors.New("invalid sort option")

// SortOption is the catalog ordering chosen by the user.
type SortOption string

const (
	SortNone      SortOption = ""
	SortTitleAsc  SortOption = "az"
	SortTitleDesc SortOption = "za"
	SortPriceAsc  SortOption = "price-asc"
	SortPriceDesc SortOption = "price-desc"
)

// SortOptions lists every option except SortNone.
var SortOptions = []SortOption{SortTitleAsc, SortTitleDesc, SortPriceAsc, SortPriceDesc}

// ParseSort parses a sort name. The empty string and "none" mean SortNone.
func ParseSort(s string) (SortOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case "az", "title-asc", "title-ascending":
		return SortTitleAsc, nil
	case "za", "title-desc", "title-descending":
		return SortTitleDesc, nil
	case "price-asc", "price-ascending":
		return SortPriceAsc, nil
	case "price-desc", "price-descending":
		return SortPriceDesc, nil
	}
	return SortNone, errors.Wrapf(ErrInvalidSort, "%q", s)
}

// SortParams are the sortBy/sortType query parameters sent to the catalog.
type SortParams struct {
	SortBy   string
	SortType string
}

// IsZero reports whether no sort parameters should be sent.
func (p SortParams) IsZero() bool {
	return p.SortBy == "" && p.SortType == ""
}

// Params maps the option to catalog query parameters.
func (o SortOption) Params() SortParams {
	switch o {
	case SortTitleAsc:
		return SortParams{SortBy: "title", SortType: "asc"}
	case SortTitleDesc:
		return SortParams{SortBy: "title", SortType: "desc"}
	case SortPriceAsc:
		return SortParams{SortBy: "price", SortType: "asc"}
	case SortPriceDesc:
		return SortParams{SortBy: "price", SortType: "desc"}
	default:
		return SortParams{}
	}
}

// Sort returns a sorted copy of list. SortNone returns list unchanged.
// Titles are collated the way a user expects (case and accent aware);
// prices compare as decimals. Equal keys keep their relative order.
func Sort(list []Summary, o SortOption) []Summary {
	if o == SortNone || o.Params().IsZero() {
		return list
	}

	sorted := slices.Clone(list)
	switch o {
	case SortTitleAsc, SortTitleDesc:
		c := collate.New(language.English)
		slices.SortStableFunc(sorted, func(a, b Summary) int {
			if o == SortTitleDesc {
				return c.CompareString(b.Title, a.Title)
			}
			return c.CompareString(a.Title, b.Title)
		})
	case SortPriceAsc, SortPriceDesc:
		slices.SortStableFunc(sorted, func(a, b Summary) int {
			if o == SortPriceDesc {
				return b.Price.Cmp(a.Price)
			}
			return a.Price.Cmp(b.Price)
		})
	}
	return sorted
}

// ListParams describes one catalog page request.
type ListParams struct {
	Page  int
	Limit int
	Query string
	Sort  SortOption
}

// Values encodes the params as a query string. The query is trimmed and
// dropped entirely when empty; sort params are only sent when a sort is set.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		v.Set("query", q)
	}
	if sp := p.Sort.Params(); !sp.IsZero() {
		v.Set("sortBy", sp.SortBy)
		v.Set("sortType", sp.SortType)
	}
	return v
}
