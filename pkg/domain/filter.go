package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// DateLayout is the wire format of release dates.
	DateLayout = "2006-01-02"
)

// BookFilterQuery holds list filters as they arrive on the query string.
type BookFilterQuery struct {
	PriceRange       string
	ReleaseDateRange string
	Title            string
	Category         string
	Authors          string
	Page             string
	Limit            string
}

// FloatRange is an inclusive numeric range. A nil bound is open.
type FloatRange struct {
	Min *float64
	Max *float64
}

// DateRange is an inclusive calendar date range. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// BookFilter is the validated form of BookFilterQuery. All conditions are ANDed.
type BookFilter struct {
	Price    FloatRange
	Released DateRange
	Title    string
	Category string
	Authors  []int64
	Page     int
	Limit    int
}

// Offset is the number of rows skipped before the requested page.
func (f BookFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// FilterError reports an unusable list parameter.
type FilterError struct {
	Field  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ParseBookFilter validates raw list parameters and fills in paging defaults.
func ParseBookFilter(q BookFilterQuery) (BookFilter, error) {
	f := BookFilter{
		Title:    q.Title,
		Category: q.Category,
		Page:     DefaultPage,
		Limit:    DefaultLimit,
	}

	price, err := parseFloatRange(q.PriceRange)
	if err != nil {
		return BookFilter{}, err
	}
	f.Price = price

	released, err := parseDateRange(q.ReleaseDateRange)
	if err != nil {
		return BookFilter{}, err
	}
	f.Released = released

	authors, err := parseIDList(q.Authors)
	if err != nil {
		return BookFilter{}, err
	}
	f.Authors = authors

	if raw := strings.TrimSpace(q.Limit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return BookFilter{}, &FilterError{Field: "limit", Reason: "must be a positive integer"}
		}
		if limit > MaxLimit {
			limit = MaxLimit
		}
		f.Limit = limit
	}
	if raw := strings.TrimSpace(q.Page); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return BookFilter{}, &FilterError{Field: "page", Reason: "must be a positive integer"}
		}
		// Offset must fit in an int.
		if page-1 > math.MaxInt/f.Limit {
			return BookFilter{}, &FilterError{Field: "page", Reason: "is too large"}
		}
		f.Page = page
	}
	return f, nil
}

// splitRange splits "lo,hi" into its trimmed halves. A value without a comma is
// a lower bound only.
func splitRange(raw string) (string, string, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) > 2 {
		return "", "", false
	}
	lo := strings.TrimSpace(parts[0])
	hi := ""
	if len(parts) == 2 {
		hi = strings.TrimSpace(parts[1])
	}
	return lo, hi, true
}

func parseFloatRange(raw string) (FloatRange, error) {
	var r FloatRange
	if strings.TrimSpace(raw) == "" {
		return r, nil
	}
	lo, hi, ok := splitRange(raw)
	if !ok {
		return r, &FilterError{Field: "priceRange", Reason: `expected "min,max"`}
	}
	parse := func(s string) (*float64, error) {
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &FilterError{Field: "priceRange", Reason: fmt.Sprintf("%q is not a number", s)}
		}
		return &v, nil
	}
	var err error
	if r.Min, err = parse(lo); err != nil {
		return FloatRange{}, err
	}
	if r.Max, err = parse(hi); err != nil {
		return FloatRange{}, err
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return FloatRange{}, &FilterError{Field: "priceRange", Reason: "min is greater than max"}
	}
	return r, nil
}

func parseDateRange(raw string) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(raw) == "" {
		return r, nil
	}
	lo, hi, ok := splitRange(raw)
	if !ok {
		return r, &FilterError{Field: "releaseDateRange", Reason: `expected "from,to"`}
	}
	parse := func(s string) (*time.Time, error) {
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, &FilterError{Field: "releaseDateRange", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
		}
		return &t, nil
	}
	var err error
	if r.From, err = parse(lo); err != nil {
		return DateRange{}, err
	}
	if r.To, err = parse(hi); err != nil {
		return DateRange{}, err
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return DateRange{}, &FilterError{Field: "releaseDateRange", Reason: "from is after to"}
	}
	return r, nil
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &FilterError{Field: "authors", Reason: fmt.Sprintf("%q is not an integer id", part)}
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Matches reports whether b satisfies every condition of f. Stores that cannot
// push filters down to SQL use it directly.
func (f BookFilter) Matches(b Book) bool {
	if f.Price.Min != nil || f.Price.Max != nil {
		if b.Price == nil {
			return false
		}
		if f.Price.Min != nil && *b.Price < *f.Price.Min {
			return false
		}
		if f.Price.Max != nil && *b.Price > *f.Price.Max {
			return false
		}
	}
	if f.Released.From != nil || f.Released.To != nil {
		if b.ReleaseDate == nil {
			return false
		}
		day := b.ReleaseDate.Format(DateLayout)
		if f.Released.From != nil && day < f.Released.From.Format(DateLayout) {
			return false
		}
		if f.Released.To != nil && day > f.Released.To.Format(DateLayout) {
			return false
		}
	}
	if f.Title != "" && (b.Title == nil || !strings.Contains(*b.Title, f.Title)) {
		return false
	}
	if f.Category != "" && (b.Category == nil || !strings.Contains(*b.Category, f.Category)) {
		return false
	}
	if len(f.Authors) > 0 {
		found := false
		for _, id := range f.Authors {
			if id == b.AuthorID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
