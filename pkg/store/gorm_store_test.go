package store

import (
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"settle/pkg/domain"
)

// dryRunDB builds SQL without connecting to Postgres.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=settle dbname=settle sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestApplyBookFilterBuildsConjunction(t *testing.T) {
	f, err := domain.ParseBookFilter(domain.BookFilterQuery{
		PriceRange:       "0,15",
		ReleaseDateRange: "2023-09-01,2023-10-30",
		Title:            "50%_off",
		Category:         "Cooking",
		Authors:          "1,2",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var books []BookModel
	stmt := applyBookFilter(dryRunDB(t).Model(&BookModel{}), f).Order("id ASC").Find(&books).Statement
	sql := stmt.SQL.String()

	for _, want := range []string{
		`FROM "books"`,
		"price >= $1",
		"price <= $2",
		"release_date >= $3",
		"release_date <= $4",
		"title LIKE $5",
		"category LIKE $6",
		"author_id IN ($7,$8)",
		"ORDER BY id ASC",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("sql %q missing %q", sql, want)
		}
	}
	if got := stmt.Vars[0]; got != 0.0 {
		t.Fatalf("zero price bound should be bound as 0, got %v", got)
	}
	if got := stmt.Vars[2]; got != "2023-09-01" {
		t.Fatalf("from date var = %v", got)
	}
	if got := stmt.Vars[4]; got != `%50\%\_off%` {
		t.Fatalf("title pattern = %v", got)
	}
}

func TestApplyBookFilterOpenFilterHasNoWhere(t *testing.T) {
	f, err := domain.ParseBookFilter(domain.BookFilterQuery{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var books []BookModel
	sql := applyBookFilter(dryRunDB(t).Model(&BookModel{}), f).Find(&books).Statement.SQL.String()
	if strings.Contains(sql, "WHERE") {
		t.Fatalf("unexpected WHERE in %q", sql)
	}
}

func TestBookPageOrdersByIDWithOffsetAndLimit(t *testing.T) {
	f, err := domain.ParseBookFilter(domain.BookFilterQuery{Category: "Cooking", Page: "3", Limit: "5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var books []BookModel
	stmt := bookPage(dryRunDB(t), f).Find(&books).Statement
	sql := stmt.SQL.String()
	for _, want := range []string{"category LIKE $1", "ORDER BY id ASC", "LIMIT $2", "OFFSET $3"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("sql %q missing %q", sql, want)
		}
	}
	if got := stmt.Vars[len(stmt.Vars)-1]; got != 10 {
		t.Fatalf("offset var = %v, want 10", got)
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	if got := containsPattern(`a\b`); got != `%a\\b%` {
		t.Fatalf("pattern = %q", got)
	}
	if got := containsPattern("Go"); got != "%Go%" {
		t.Fatalf("pattern = %q", got)
	}
}
