package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cellarcraft/cellardesk/internal/db"
	"github.com/cellarcraft/cellardesk/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{
		AdminEmail:    "admin@cellardesk.test",
		AdminPassword: "12345",
	}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 5 {
				t.Fatalf("expected 5 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, []any{"admin@cellardesk.test"}, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM exchange_rates WHERE id = 1`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM partners WHERE name = ?`, []any{demoPartnerName}, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM products`, nil, 2)

	var hash string
	if err := database.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, "admin@cellardesk.test").Scan(&hash); err != nil {
		t.Fatalf("query admin hash: %v", err)
	}
	if hash != hashPassword("12345") {
		t.Fatalf("expected admin hash to match password")
	}

	var apiKey string
	if err := database.QueryRow(`SELECT api_key FROM partners WHERE name = ?`, demoPartnerName).Scan(&apiKey); err != nil {
		t.Fatalf("query partner api key: %v", err)
	}
	if apiKey == "" {
		t.Fatalf("expected seeded partner to carry an api key")
	}
}

func TestSeedSkipsAdminWithoutCredentials(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-nocreds.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	stats, err := Run(database, Config{})
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Inserts != 4 {
		t.Fatalf("expected 4 inserts without admin credentials, got %d", stats.Inserts)
	}
	assertCount(t, database, `SELECT COUNT(*) FROM users`, nil, 0)
}

func assertCount(t *testing.T, database *sql.DB, query string, args []any, want int) {
	t.Helper()

	var got int
	if err := database.QueryRow(query, args...).Scan(&got); err != nil {
		t.Fatalf("count query %q: %v", query, err)
	}
	if got != want {
		t.Fatalf("count for %q = %d, want %d", query, got, want)
	}
}
