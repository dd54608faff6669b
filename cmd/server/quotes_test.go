package main

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func TestListQuotesOrdersByDateDescAndReadsTotal(t *testing.T) {
	db := newQuotesTestDB(t)
	srv := &server{db: db}

	seedQuote(t, db, "2025-01-01 10:00:00", "q-1", "pco", "First", "note one", `{"totalUsd": 100.50, "totalAed": 368.84}`)
	seedQuote(t, db, "2025-01-03 12:00:00", "q-3", "b2b", "Third", "note three", `{"totalUsd": 300.00, "totalAed": 1101.00}`)
	seedQuote(t, db, "2025-01-02 11:00:00", "q-2", "pocket_cellar", "Second", "note two", `{"totalUsd": 200.25, "totalAed": 734.92}`)

	quotes, err := srv.listQuotes("")
	if err != nil {
		t.Fatalf("listQuotes returned error: %v", err)
	}

	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}

	if quotes[0].Title != "Third" || quotes[1].Title != "Second" || quotes[2].Title != "First" {
		t.Fatalf("quotes are not sorted desc by created_at: %+v", quotes)
	}

	if quotes[0].TotalUSD != 300.00 || quotes[1].TotalUSD != 200.25 || quotes[2].TotalUSD != 100.50 {
		t.Fatalf("unexpected totals: %+v", quotes)
	}

	if quotes[0].Model != "b2b" || quotes[0].Reference != "q-3" {
		t.Fatalf("model/reference not carried through: %+v", quotes[0])
	}
}

func TestListQuotesFilterByTitleAndNotes(t *testing.T) {
	db := newQuotesTestDB(t)
	srv := &server{db: db}

	seedQuote(t, db, "2025-01-01 10:00:00", "q-1", "pco", "Bordeaux case", "red allocation", `{"totalUsd": 80}`)
	seedQuote(t, db, "2025-01-02 10:00:00", "q-2", "b2b", "Burgundy lot", "vip client", `{"totalUsd": 120}`)
	seedQuote(t, db, "2025-01-03 10:00:00", "q-3", "pco", "Champagne", "urgent bordeaux follow-up", `{"totalUsd": 160}`)

	byTitle, err := srv.listQuotes("Burgundy")
	if err != nil {
		t.Fatalf("listQuotes title filter returned error: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].Title != "Burgundy lot" {
		t.Fatalf("expected 1 quote filtered by title, got %+v", byTitle)
	}

	byNotes, err := srv.listQuotes("bordeaux")
	if err != nil {
		t.Fatalf("listQuotes notes filter returned error: %v", err)
	}
	if len(byNotes) != 2 {
		t.Fatalf("expected 2 quotes filtered by notes/title, got %+v", byNotes)
	}
}

func TestExtractTotalFromJSON(t *testing.T) {
	if got := extractTotalFromJSON(`{"totalUsd": 42.5}`); got != 42.5 {
		t.Fatalf("totalUsd key: got %v", got)
	}
	if got := extractTotalFromJSON(`{"finalPriceUsd": 10}`); got != 10 {
		t.Fatalf("finalPriceUsd fallback: got %v", got)
	}
	if got := extractTotalFromJSON(`not json`); got != 0 {
		t.Fatalf("malformed json should yield 0, got %v", got)
	}
}

func newQuotesTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE quotes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL UNIQUE,
			model TEXT NOT NULL,
			partner_id INTEGER,
			title TEXT,
			notes TEXT,
			supplier_price_usd REAL NOT NULL DEFAULT 0,
			breakdown_json TEXT NOT NULL DEFAULT '{}',
			totals_json TEXT NOT NULL,
			is_bespoke BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("failed creating quotes table: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func seedQuote(t *testing.T, db *sql.DB, createdAt, reference, model, title, notes, totalsJSON string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO quotes (created_at, reference, model, title, notes, totals_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, createdAt, reference, model, title, notes, totalsJSON)
	if err != nil {
		t.Fatalf("failed to seed quote: %v", err)
	}
}
