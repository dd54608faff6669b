package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cellarcraft/cellardesk/internal/config"
	"github.com/cellarcraft/cellardesk/internal/db"
	"github.com/cellarcraft/cellardesk/internal/migrations"
	"github.com/cellarcraft/cellardesk/internal/pricing"
	"github.com/cellarcraft/cellardesk/internal/seed"
)

type server struct {
	auth *authService
	db   *sql.DB
}

type contextKey string

const partnerIDKey contextKey = "partnerID"

type partner struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"apiKey"`
	Notes  string `json:"notes"`
	Active bool   `json:"active"`
}

type product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Producer         string  `json:"producer"`
	Vintage          int     `json:"vintage"`
	Source           string  `json:"source"`
	SupplierPrice    float64 `json:"supplierPrice"`
	SupplierCurrency string  `json:"supplierCurrency"`
	Active           bool    `json:"active"`
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		log.Fatalf("failed to run startup seed: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("seed: %d rows inserted", stats.Inserts)
	}

	auth := newAuthService(database, cfg.SessionSecret)
	if err := auth.ensureAdminUser(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	srv := &server{auth: auth, db: database}

	r := chi.NewRouter()
	r.Post("/login", srv.handleLogin)
	r.Post("/logout", srv.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(srv.adminAuthMiddleware)
		r.Get("/admin/exchange-rates", srv.handleExchangeRatesGet)
		r.Put("/admin/exchange-rates", srv.handleExchangeRatesUpdate)
		r.Get("/admin/partners", srv.handlePartnersList)
		r.Post("/admin/partners", srv.handlePartnersCreate)
		r.Post("/admin/partners/{id}", srv.handlePartnersUpdate)
		r.Get("/admin/partners/{id}/overrides/{model}", srv.handleOverridesGet)
		r.Put("/admin/partners/{id}/overrides/{model}", srv.handleOverridesPut)
		r.Get("/admin/products", srv.handleProductsList)
		r.Post("/admin/products", srv.handleProductsCreate)
		r.Post("/admin/products/{id}", srv.handleProductsUpdate)
		r.Post("/admin/quotes/pco", srv.handleQuotePCO)
		r.Post("/admin/quotes/b2b", srv.handleQuoteB2B)
		r.Post("/admin/quotes/pocket-cellar", srv.handleQuotePocketCellar)
		r.Get("/admin/quotes", srv.handleQuotesList)
	})

	r.Group(func(r chi.Router) {
		r.Use(srv.partnerAuthMiddleware)
		r.Post("/partner/quotes/pco", srv.handlePartnerQuotePCO)
		r.Post("/partner/quotes/pocket-cellar", srv.handlePartnerQuotePocketCellar)
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	valid, err := s.auth.validateCredentials(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "authentication error")
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.auth.setSessionCookie(w, req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r, s.auth) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) partnerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		var partnerID int64
		err := s.db.QueryRow(`SELECT id FROM partners WHERE api_key = ? AND active`, apiKey).Scan(&partnerID)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to authenticate partner")
			return
		}

		ctx := context.WithValue(r.Context(), partnerIDKey, partnerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func partnerFromContext(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(partnerIDKey).(int64)
	return id, ok
}

func (s *server) handleExchangeRatesGet(w http.ResponseWriter, r *http.Request) {
	rates, err := s.getExchangeRates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load exchange rates")
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *server) handleExchangeRatesUpdate(w http.ResponseWriter, r *http.Request) {
	var rates pricing.ExchangeRates
	if err := json.NewDecoder(r.Body).Decode(&rates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateRate("gbpToUsd", rates.GBPToUSD); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRate("eurToUsd", rates.EURToUSD); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRate("usdToAed", rates.USDToAED); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := s.db.Exec(`
		UPDATE exchange_rates
		SET gbp_to_usd = ?, eur_to_usd = ?, usd_to_aed = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, rates.GBPToUSD, rates.EURToUSD, rates.USDToAED)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save exchange rates")
		return
	}

	writeJSON(w, http.StatusOK, rates)
}

func (s *server) getExchangeRates() (pricing.ExchangeRates, error) {
	var rates pricing.ExchangeRates
	err := s.db.QueryRow(`
		SELECT gbp_to_usd, eur_to_usd, usd_to_aed FROM exchange_rates WHERE id = 1
	`).Scan(&rates.GBPToUSD, &rates.EURToUSD, &rates.USDToAED)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.DefaultExchangeRates(), nil
	}
	if err != nil {
		return pricing.ExchangeRates{}, fmt.Errorf("query exchange rates: %w", err)
	}
	return rates, nil
}

func (s *server) handlePartnersList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, name, api_key, COALESCE(notes, ''), active
		FROM partners
		ORDER BY id DESC
	`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load partners")
		return
	}
	defer rows.Close()

	partners := make([]partner, 0)
	for rows.Next() {
		var p partner
		if err := rows.Scan(&p.ID, &p.Name, &p.APIKey, &p.Notes, &p.Active); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load partners")
			return
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load partners")
		return
	}

	writeJSON(w, http.StatusOK, partners)
}

func (s *server) handlePartnersCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	apiKey := uuid.NewString()
	result, err := s.db.Exec(`
		INSERT INTO partners (name, api_key, notes, active)
		VALUES (?, ?, ?, TRUE)
	`, req.Name, apiKey, strings.TrimSpace(req.Notes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create partner")
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create partner")
		return
	}

	writeJSON(w, http.StatusCreated, partner{
		ID: id, Name: req.Name, APIKey: apiKey, Notes: strings.TrimSpace(req.Notes), Active: true,
	})
}

func (s *server) handlePartnersUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid partner id")
		return
	}

	var req struct {
		Name   string `json:"name"`
		Notes  string `json:"notes"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	result, err := s.db.Exec(`
		UPDATE partners
		SET name = ?, notes = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.Name, strings.TrimSpace(req.Notes), req.Active, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update partner")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update partner")
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "partner not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleProductsList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, name, COALESCE(producer, ''), COALESCE(vintage, 0), source, supplier_price, supplier_currency, active
		FROM products
		ORDER BY id DESC
	`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load products")
		return
	}
	defer rows.Close()

	products := make([]product, 0)
	for rows.Next() {
		var p product
		if err := rows.Scan(&p.ID, &p.Name, &p.Producer, &p.Vintage, &p.Source, &p.SupplierPrice, &p.SupplierCurrency, &p.Active); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load products")
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (s *server) handleProductsCreate(w http.ResponseWriter, r *http.Request) {
	var req product
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateProduct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.db.Exec(`
		INSERT INTO products (name, producer, vintage, source, supplier_price, supplier_currency, active)
		VALUES (?, ?, ?, ?, ?, ?, TRUE)
	`, req.Name, req.Producer, req.Vintage, req.Source, req.SupplierPrice, req.SupplierCurrency)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	req.ID, err = result.LastInsertId()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	req.Active = true

	writeJSON(w, http.StatusCreated, req)
}

func (s *server) handleProductsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req product
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateProduct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.db.Exec(`
		UPDATE products
		SET name = ?, producer = ?, vintage = ?, source = ?, supplier_price = ?, supplier_currency = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.Name, req.Producer, req.Vintage, req.Source, req.SupplierPrice, req.SupplierCurrency, req.Active, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validateProduct(p *product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Producer = strings.TrimSpace(p.Producer)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !pricing.ProductSource(p.Source).Valid() {
		return fmt.Errorf("source must be cultx or local_inventory")
	}
	if p.SupplierPrice < 0 {
		return fmt.Errorf("supplierPrice must be >= 0")
	}
	switch p.SupplierCurrency {
	case "":
		p.SupplierCurrency = "USD"
	case "USD", "GBP", "EUR":
	default:
		return fmt.Errorf("supplierCurrency must be USD, GBP or EUR")
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func validateRate(field string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%s must be greater than 0", field)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
