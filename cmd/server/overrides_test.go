package main

import (
	"database/sql"
	"math"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cellarcraft/cellardesk/internal/pricing"
)

func TestLoadOverridesAppliesOnlyStoredFields(t *testing.T) {
	db := newOverridesTestDB(t)
	srv := &server{db: db}

	seedOverride(t, db, 1, "pco", `{"ccMarginPercent": 4, "vatPercent": 0}`)

	var stored pricing.PCOOverrides
	found, err := srv.loadOverrides(1, "pco", &stored)
	if err != nil {
		t.Fatalf("loadOverrides returned error: %v", err)
	}
	if !found {
		t.Fatalf("expected stored overrides to be found")
	}

	vars := stored.Apply(pricing.DefaultPCOVariables())
	if vars.CCMarginPercent != 4 {
		t.Fatalf("ccMarginPercent = %v, want 4", vars.CCMarginPercent)
	}
	if vars.VATPercent != 0 {
		t.Fatalf("vatPercent = %v, want 0", vars.VATPercent)
	}
	if vars.ImportDutyPercent != 20 || vars.DistributorMarginPercent != 7.5 {
		t.Fatalf("untouched defaults were changed: %+v", vars)
	}
}

func TestLoadOverridesMissingRow(t *testing.T) {
	db := newOverridesTestDB(t)
	srv := &server{db: db}

	var stored pricing.B2BOverrides
	found, err := srv.loadOverrides(99, "b2b", &stored)
	if err != nil {
		t.Fatalf("loadOverrides returned error: %v", err)
	}
	if found {
		t.Fatalf("expected no overrides for unknown partner")
	}
}

func TestLoadOverridesIgnoresInactiveRow(t *testing.T) {
	db := newOverridesTestDB(t)
	srv := &server{db: db}

	_, err := db.Exec(`
		INSERT INTO pricing_overrides (partner_id, model, overrides_json, active)
		VALUES (1, 'pco', '{"vatPercent": 0}', FALSE)
	`)
	if err != nil {
		t.Fatalf("seed inactive override: %v", err)
	}

	var stored pricing.PCOOverrides
	found, err := srv.loadOverrides(1, "pco", &stored)
	if err != nil {
		t.Fatalf("loadOverrides returned error: %v", err)
	}
	if found {
		t.Fatalf("inactive override should not resolve")
	}
}

func TestToUSD(t *testing.T) {
	rates := pricing.DefaultExchangeRates()

	usd, err := toUSD(100, "USD", rates)
	if err != nil || usd != 100 {
		t.Fatalf("USD passthrough: got %v, %v", usd, err)
	}

	gbp, err := toUSD(100, "GBP", rates)
	if err != nil || gbp != 127 {
		t.Fatalf("GBP conversion: got %v, %v", gbp, err)
	}

	eur, err := toUSD(100, "EUR", rates)
	if err != nil || math.Abs(eur-108) > 1e-9 {
		t.Fatalf("EUR conversion: got %v, %v", eur, err)
	}

	if _, err := toUSD(100, "AED", rates); err == nil {
		t.Fatalf("expected error for unsupported currency")
	}
	if _, err := toUSD(-1, "USD", rates); err == nil {
		t.Fatalf("expected error for negative price")
	}
}

func TestValidateVariables(t *testing.T) {
	if err := validatePCOVariables(pricing.DefaultPCOVariables()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if err := validateB2BVariables(pricing.DefaultB2BVariables()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if err := validatePocketCellarVariables(pricing.DefaultPocketCellarVariables()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	bad := pricing.DefaultPCOVariables()
	bad.CCMarginPercent = 100
	if err := validatePCOVariables(bad); err == nil {
		t.Fatalf("margin of 100 must be rejected before the gross-up")
	}

	negative := pricing.DefaultPocketCellarVariables()
	negative.LogisticsAirPerBottle = -1
	if err := validatePocketCellarVariables(negative); err == nil {
		t.Fatalf("negative per-bottle cost must be rejected")
	}

	overVat := pricing.DefaultPCOVariables()
	overVat.VATPercent = 101
	if err := validatePCOVariables(overVat); err == nil {
		t.Fatalf("vat above 100 must be rejected")
	}
}

func newOverridesTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE pricing_overrides (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			partner_id INTEGER NOT NULL,
			model TEXT NOT NULL,
			overrides_json TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);
	`)
	if err != nil {
		t.Fatalf("failed creating pricing_overrides table: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func seedOverride(t *testing.T, db *sql.DB, partnerID int64, model, overridesJSON string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO pricing_overrides (partner_id, model, overrides_json, active)
		VALUES (?, ?, ?, TRUE)
	`, partnerID, model, overridesJSON)
	if err != nil {
		t.Fatalf("failed to seed override: %v", err)
	}
}
