package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cellarcraft/cellardesk/internal/pricing"
)

func TestHandlePartnerQuotePCO_AppliesBespokeOverrides(t *testing.T) {
	db := newPartnerTestDB(t)
	srv := &server{db: db}

	seedOverrideRow(t, db, 1, "pco", `{"ccMarginPercent": 4, "vatPercent": 0}`)

	rec := httptest.NewRecorder()
	req := partnerRequest(t, 1, `{"supplierPriceUsd": 1000}`)
	srv.handlePartnerQuotePCO(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got pricing.PCOResultPartner
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	cc := 4.0
	vat := 0.0
	vars := pricing.PCOOverrides{CCMarginPercent: &cc, VATPercent: &vat}.Apply(pricing.DefaultPCOVariables())
	want := pricing.CalculatePCOPartner(1000, vars, pricing.DefaultExchangeRates(), true)

	if !got.IsBespoke {
		t.Fatalf("expected bespoke flag in partner response")
	}
	if math.Abs(got.TotalUSD-want.TotalUSD) > 1e-9 {
		t.Fatalf("totalUsd = %v, want %v", got.TotalUSD, want.TotalUSD)
	}
	if math.Abs(got.VATUSD) > 1e-9 {
		t.Fatalf("vatUsd = %v, want 0 with overridden vat", got.VATUSD)
	}
}

func TestHandlePartnerQuotePCO_DefaultsWithoutOverrides(t *testing.T) {
	db := newPartnerTestDB(t)
	srv := &server{db: db}

	rec := httptest.NewRecorder()
	req := partnerRequest(t, 1, `{"supplierPriceUsd": 1000}`)
	srv.handlePartnerQuotePCO(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got pricing.PCOResultPartner
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.IsBespoke {
		t.Fatalf("expected non-bespoke response without overrides")
	}

	want := pricing.CalculatePCOPartner(1000, pricing.DefaultPCOVariables(), pricing.DefaultExchangeRates(), false)
	if math.Abs(got.TotalUSD-want.TotalUSD) > 1e-9 {
		t.Fatalf("totalUsd = %v, want %v", got.TotalUSD, want.TotalUSD)
	}
}

func TestHandlePartnerQuotePocketCellar_UsesProductSourceAndCurrency(t *testing.T) {
	db := newPartnerTestDB(t)
	srv := &server{db: db}

	seedProductRow(t, db, 1, "Test Claret", "cultx", 100, "GBP")

	rec := httptest.NewRecorder()
	req := partnerRequest(t, 1, `{"productId": 1, "bottleCount": 6}`)
	srv.handlePartnerQuotePocketCellar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got pricing.PocketCellarResultPartner
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rates := pricing.DefaultExchangeRates()
	want := pricing.CalculatePocketCellarPartner(100*rates.GBPToUSD, pricing.SourceCultX, 6, pricing.DefaultPocketCellarVariables(), rates, false)
	if math.Abs(got.TotalUSD-want.TotalUSD) > 1e-9 {
		t.Fatalf("totalUsd = %v, want %v", got.TotalUSD, want.TotalUSD)
	}
	if math.Abs(got.SupplierPriceUSD-127) > 1e-9 {
		t.Fatalf("supplierPriceUsd = %v, want 127 after GBP conversion", got.SupplierPriceUSD)
	}
}

func TestHandlePartnerQuotePocketCellar_RejectsBottleCount(t *testing.T) {
	db := newPartnerTestDB(t)
	srv := &server{db: db}

	rec := httptest.NewRecorder()
	req := partnerRequest(t, 1, `{"productId": 1, "bottleCount": 0}`)
	srv.handlePartnerQuotePocketCellar(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for zero bottles", rec.Code)
	}
}

func partnerRequest(t *testing.T, partnerID int64, body string) *http.Request {
	t.Helper()

	req := httptest.NewRequest("POST", "/partner/quotes", strings.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), partnerIDKey, partnerID))
}

func newPartnerTestDB(t *testing.T) *sql.DB {
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
		CREATE TABLE products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			supplier_price REAL NOT NULL,
			supplier_currency TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE TABLE exchange_rates (
			id INTEGER PRIMARY KEY,
			gbp_to_usd REAL NOT NULL,
			eur_to_usd REAL NOT NULL,
			usd_to_aed REAL NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("failed creating test tables: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func seedOverrideRow(t *testing.T, db *sql.DB, partnerID int64, model, overridesJSON string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO pricing_overrides (partner_id, model, overrides_json)
		VALUES (?, ?, ?)
	`, partnerID, model, overridesJSON)
	if err != nil {
		t.Fatalf("failed to seed override: %v", err)
	}
}

func seedProductRow(t *testing.T, db *sql.DB, id int64, name, source string, price float64, currency string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO products (id, name, source, supplier_price, supplier_currency)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, source, price, currency)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
}
