package domain

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"
)

func TestParseBookFilterDefaults(t *testing.T) {
	f, err := ParseBookFilter(BookFilterQuery{})
	if err != nil {
		t.Fatalf("parse empty filter: %v", err)
	}
	if f.Page != DefaultPage || f.Limit != DefaultLimit {
		t.Fatalf("page/limit = %d/%d, want %d/%d", f.Page, f.Limit, DefaultPage, DefaultLimit)
	}
	if f.Offset() != 0 {
		t.Fatalf("offset = %d, want 0", f.Offset())
	}
	if f.Price.Min != nil || f.Price.Max != nil || f.Authors != nil {
		t.Fatalf("expected open filter, got %+v", f)
	}
}

func TestParseBookFilterPriceRange(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMin *float64
		wantMax *float64
		wantErr bool
	}{
		{name: "both bounds", raw: "5,15", wantMin: ptr(5.0), wantMax: ptr(15.0)},
		{name: "zero lower bound is kept", raw: "0,15", wantMin: ptr(0.0), wantMax: ptr(15.0)},
		{name: "min only", raw: "5", wantMin: ptr(5.0)},
		{name: "max only", raw: ",15", wantMax: ptr(15.0)},
		{name: "min with trailing comma", raw: "5,", wantMin: ptr(5.0)},
		{name: "not a number", raw: "cheap,15", wantErr: true},
		{name: "inverted", raw: "20,10", wantErr: true},
		{name: "too many parts", raw: "1,2,3", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseBookFilter(BookFilterQuery{PriceRange: tc.raw})
			if tc.wantErr {
				var fe *FilterError
				if !errors.As(err, &fe) || fe.Field != "priceRange" {
					t.Fatalf("expected priceRange filter error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !sameFloat(f.Price.Min, tc.wantMin) || !sameFloat(f.Price.Max, tc.wantMax) {
				t.Fatalf("range = %v..%v, want %v..%v", deref(f.Price.Min), deref(f.Price.Max), deref(tc.wantMin), deref(tc.wantMax))
			}
		})
	}
}

func TestParseBookFilterDatesAuthorsAndPaging(t *testing.T) {
	f, err := ParseBookFilter(BookFilterQuery{
		ReleaseDateRange: "2023-09-01,2023-10-30",
		Authors:          "1, 2,,3",
		Page:             "2",
		Limit:            "10",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := f.Released.From.Format(DateLayout); got != "2023-09-01" {
		t.Fatalf("from = %s", got)
	}
	if got := f.Released.To.Format(DateLayout); got != "2023-10-30" {
		t.Fatalf("to = %s", got)
	}
	if len(f.Authors) != 3 || f.Authors[0] != 1 || f.Authors[2] != 3 {
		t.Fatalf("authors = %v", f.Authors)
	}
	if f.Offset() != 10 {
		t.Fatalf("offset = %d, want 10", f.Offset())
	}

	if _, err := ParseBookFilter(BookFilterQuery{ReleaseDateRange: "yesterday"}); err == nil {
		t.Fatalf("expected bad date to fail")
	}
	if _, err := ParseBookFilter(BookFilterQuery{Authors: "1,bob"}); err == nil {
		t.Fatalf("expected bad author id to fail")
	}
	if _, err := ParseBookFilter(BookFilterQuery{Page: "0"}); err == nil {
		t.Fatalf("expected page 0 to fail")
	}
	if _, err := ParseBookFilter(BookFilterQuery{Limit: "-3"}); err == nil {
		t.Fatalf("expected negative limit to fail")
	}
	capped, err := ParseBookFilter(BookFilterQuery{Limit: "5000"})
	if err != nil {
		t.Fatalf("parse large limit: %v", err)
	}
	if capped.Limit != MaxLimit {
		t.Fatalf("limit = %d, want %d", capped.Limit, MaxLimit)
	}
}

func TestParseBookFilterRejectsOverflowingPage(t *testing.T) {
	for _, q := range []BookFilterQuery{
		{Page: "922337203685477581"},
		{Page: "92233720368547760", Limit: "100"},
		{Page: "99999999999999999999"},
	} {
		_, err := ParseBookFilter(q)
		var fe *FilterError
		if !errors.As(err, &fe) || fe.Field != "page" {
			t.Fatalf("page %q limit %q: expected page filter error, got %v", q.Page, q.Limit, err)
		}
	}

	// Largest page whose offset still fits.
	maxPage := strconv.Itoa(math.MaxInt/DefaultLimit + 1)
	f, err := ParseBookFilter(BookFilterQuery{Page: maxPage})
	if err != nil {
		t.Fatalf("page %s: %v", maxPage, err)
	}
	if f.Offset() < 0 {
		t.Fatalf("offset overflowed: %d", f.Offset())
	}
}

func TestParseBookFilterBlankAuthorsIsNoop(t *testing.T) {
	f, err := ParseBookFilter(BookFilterQuery{Authors: " , "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Authors != nil {
		t.Fatalf("authors = %v, want nil", f.Authors)
	}
}

func TestBookFilterMatches(t *testing.T) {
	released := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	book := Book{
		ID:          1,
		Title:       ptr("Cooking for Two"),
		Category:    ptr("Cooking"),
		Price:       ptr(10.0),
		ReleaseDate: &released,
		AuthorID:    4,
	}

	match := func(q BookFilterQuery) bool {
		t.Helper()
		f, err := ParseBookFilter(q)
		if err != nil {
			t.Fatalf("parse %+v: %v", q, err)
		}
		return f.Matches(book)
	}

	if !match(BookFilterQuery{PriceRange: "5,15"}) {
		t.Fatalf("expected price 10 within 5..15")
	}
	if match(BookFilterQuery{PriceRange: "20,30"}) {
		t.Fatalf("expected price 10 outside 20..30")
	}
	if !match(BookFilterQuery{PriceRange: "10,10"}) {
		t.Fatalf("expected inclusive bounds")
	}
	if !match(BookFilterQuery{ReleaseDateRange: "2023-10-01,2023-10-01"}) {
		t.Fatalf("expected inclusive date bounds")
	}
	if !match(BookFilterQuery{Title: "for"}) {
		t.Fatalf("expected substring title match")
	}
	if match(BookFilterQuery{Title: "cooking"}) {
		t.Fatalf("expected case-sensitive title match")
	}
	if !match(BookFilterQuery{Authors: "3,4"}) || match(BookFilterQuery{Authors: "3"}) {
		t.Fatalf("unexpected authors membership result")
	}
	if match(BookFilterQuery{Category: "Cook", PriceRange: "11,"}) {
		t.Fatalf("expected conjunction to reject on price")
	}
}

func TestUserPublicStripsPasswordHash(t *testing.T) {
	u := User{ID: 1, Email: "a@x.com", PasswordHash: "$2a$10$secret"}
	if got := u.Public().PasswordHash; got != "" {
		t.Fatalf("public password hash = %q", got)
	}
	if u.PasswordHash == "" {
		t.Fatalf("original user must keep its hash")
	}
}

func TestParseUserRole(t *testing.T) {
	if r, ok := ParseUserRole("Author"); !ok || r != RoleAuthor {
		t.Fatalf("Author -> %q %v", r, ok)
	}
	if r, ok := ParseUserRole("USER"); !ok || r != RoleUser {
		t.Fatalf("USER -> %q %v", r, ok)
	}
	if _, ok := ParseUserRole("admin"); ok {
		t.Fatalf("admin must not parse")
	}
}

func ptr[T any](v T) *T { return &v }

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
