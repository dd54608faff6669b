package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cellarcraft/cellardesk/internal/pricing"
)

const (
	modelPCO          = "pco"
	modelB2B          = "b2b"
	modelPocketCellar = "pocket_cellar"
)

type quoteListItem struct {
	Reference string  `json:"reference"`
	CreatedAt string  `json:"createdAt"`
	Model     string  `json:"model"`
	Title     string  `json:"title"`
	TotalUSD  float64 `json:"totalUsd"`
}

type pcoQuoteRequest struct {
	SupplierPrice    float64               `json:"supplierPrice"`
	SupplierCurrency string                `json:"supplierCurrency"`
	PartnerID        *int64                `json:"partnerId"`
	Title            string                `json:"title"`
	Notes            string                `json:"notes"`
	Overrides        *pricing.PCOOverrides `json:"overrides"`
}

type b2bQuoteRequest struct {
	SupplierPrice    float64               `json:"supplierPrice"`
	SupplierCurrency string                `json:"supplierCurrency"`
	PartnerID        *int64                `json:"partnerId"`
	Title            string                `json:"title"`
	Notes            string                `json:"notes"`
	Overrides        *pricing.B2BOverrides `json:"overrides"`
}

type pocketCellarQuoteRequest struct {
	ProductID   int64                          `json:"productId"`
	BottleCount int                            `json:"bottleCount"`
	PartnerID   *int64                         `json:"partnerId"`
	Title       string                         `json:"title"`
	Notes       string                         `json:"notes"`
	Overrides   *pricing.PocketCellarOverrides `json:"overrides"`
}

func (s *server) handleOverridesGet(w http.ResponseWriter, r *http.Request) {
	partnerID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid partner id")
		return
	}
	model := chi.URLParam(r, "model")
	if !validModel(model) {
		writeError(w, http.StatusBadRequest, "unknown pricing model")
		return
	}

	var overridesJSON string
	err = s.db.QueryRow(`
		SELECT overrides_json FROM pricing_overrides
		WHERE partner_id = ? AND model = ? AND active
	`, partnerID, model).Scan(&overridesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no bespoke overrides for this partner and model")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load overrides")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(overridesJSON))
}

func (s *server) handleOverridesPut(w http.ResponseWriter, r *http.Request) {
	partnerID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid partner id")
		return
	}
	model := chi.URLParam(r, "model")
	if !validModel(model) {
		writeError(w, http.StatusBadRequest, "unknown pricing model")
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM partners WHERE id = ?)`, partnerID).Scan(&exists); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check partner")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "partner not found")
		return
	}

	// Decode into the model's typed override struct so unknown fields and
	// malformed values are rejected before anything is stored, then
	// validate the merged variables the overrides would produce.
	body := json.NewDecoder(r.Body)
	body.DisallowUnknownFields()

	var overridesJSON []byte
	switch model {
	case modelPCO:
		var o pricing.PCOOverrides
		if err := body.Decode(&o); err != nil {
			writeError(w, http.StatusBadRequest, "invalid overrides body")
			return
		}
		if err := validatePCOVariables(o.Apply(pricing.DefaultPCOVariables())); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		overridesJSON, err = json.Marshal(o)
	case modelB2B:
		var o pricing.B2BOverrides
		if err := body.Decode(&o); err != nil {
			writeError(w, http.StatusBadRequest, "invalid overrides body")
			return
		}
		if err := validateB2BVariables(o.Apply(pricing.DefaultB2BVariables())); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		overridesJSON, err = json.Marshal(o)
	case modelPocketCellar:
		var o pricing.PocketCellarOverrides
		if err := body.Decode(&o); err != nil {
			writeError(w, http.StatusBadRequest, "invalid overrides body")
			return
		}
		if err := validatePocketCellarVariables(o.Apply(pricing.DefaultPocketCellarVariables())); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		overridesJSON, err = json.Marshal(o)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode overrides")
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO pricing_overrides (partner_id, model, overrides_json, active)
		VALUES (?, ?, ?, TRUE)
		ON CONFLICT(partner_id, model) DO UPDATE SET
			overrides_json = excluded.overrides_json,
			active = TRUE,
			updated_at = CURRENT_TIMESTAMP
	`, partnerID, model, string(overridesJSON))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save overrides")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleQuotePCO(w http.ResponseWriter, r *http.Request) {
	var req pcoQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates, err := s.getExchangeRates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load exchange rates")
		return
	}

	priceUSD, err := toUSD(req.SupplierPrice, req.SupplierCurrency, rates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vars := pricing.DefaultPCOVariables()
	isBespoke := false

	if req.PartnerID != nil {
		var stored pricing.PCOOverrides
		found, err := s.loadOverrides(*req.PartnerID, modelPCO, &stored)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load partner overrides")
			return
		}
		if found {
			vars = stored.Apply(vars)
			isBespoke = true
		}
	}
	if req.Overrides != nil && !req.Overrides.Empty() {
		vars = req.Overrides.Apply(vars)
		isBespoke = true
	}

	if err := validatePCOVariables(vars); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := pricing.CalculatePCOAdmin(priceUSD, vars, rates, isBespoke)
	if err := s.storeQuote(modelPCO, req.PartnerID, req.Title, req.Notes, priceUSD, result, result.FinalPriceUSD, result.FinalPriceAED, isBespoke); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store quote")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleQuoteB2B(w http.ResponseWriter, r *http.Request) {
	var req b2bQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates, err := s.getExchangeRates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load exchange rates")
		return
	}

	priceUSD, err := toUSD(req.SupplierPrice, req.SupplierCurrency, rates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vars := pricing.DefaultB2BVariables()
	isBespoke := false

	if req.PartnerID != nil {
		var stored pricing.B2BOverrides
		found, err := s.loadOverrides(*req.PartnerID, modelB2B, &stored)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load partner overrides")
			return
		}
		if found {
			vars = stored.Apply(vars)
			isBespoke = true
		}
	}
	if req.Overrides != nil && !req.Overrides.Empty() {
		vars = req.Overrides.Apply(vars)
		isBespoke = true
	}

	if err := validateB2BVariables(vars); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := pricing.CalculateB2B(priceUSD, vars, rates, isBespoke)
	if err := s.storeQuote(modelB2B, req.PartnerID, req.Title, req.Notes, priceUSD, result, result.FinalPriceUSD, result.FinalPriceAED, isBespoke); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store quote")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleQuotePocketCellar(w http.ResponseWriter, r *http.Request) {
	var req pocketCellarQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BottleCount < 1 {
		writeError(w, http.StatusBadRequest, "bottleCount must be at least 1")
		return
	}

	rates, err := s.getExchangeRates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load exchange rates")
		return
	}

	source, priceUSD, err := s.loadProductPricing(req.ProductID, rates)
	if err != nil {
		if errors.Is(err, errProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	vars := pricing.DefaultPocketCellarVariables()
	isBespoke := false

	if req.PartnerID != nil {
		var stored pricing.PocketCellarOverrides
		found, err := s.loadOverrides(*req.PartnerID, modelPocketCellar, &stored)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load partner overrides")
			return
		}
		if found {
			vars = stored.Apply(vars)
			isBespoke = true
		}
	}
	if req.Overrides != nil && !req.Overrides.Empty() {
		vars = req.Overrides.Apply(vars)
		isBespoke = true
	}

	if err := validatePocketCellarVariables(vars); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := pricing.CalculatePocketCellarAdmin(priceUSD, source, req.BottleCount, vars, rates, isBespoke)
	if err := s.storeQuote(modelPocketCellar, req.PartnerID, req.Title, req.Notes, priceUSD, result, result.FinalPriceUSD, result.FinalPriceAED, isBespoke); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store quote")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handlePartnerQuotePCO(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := partnerFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "partner context missing")
		return
	}

	var req struct {
		SupplierPriceUSD float64 `json:"supplierPriceUsd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SupplierPriceUSD < 0 {
		writeError(w, http.StatusBadRequest, "supplierPriceUsd must be >= 0")
		return
	}

	rates, err := s.getExchangeRates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load exchange rates")
		return
	}

	vars := pricing.DefaultPCOVariables()
	isBespoke := false

	var stored pricing.PCOOverrides
	found, err := s.loadOverrides(partnerID, modelPCO, &stored)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load partner overrides")
		return
	}
	if found {
		vars = stored.Apply(vars)
		isBespoke = true
	}

	if err := validatePCOVariables(vars); err != nil {
		writeError(w, http.StatusInternalServerError, "stored overrides are invalid")
		return
	}

	writeJSON(w, http.StatusOK, pricing.CalculatePCOPartner(req.SupplierPriceUSD, vars, rates, isBespoke))
}

func (s *server) handlePartnerQuotePocketCellar(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := partnerFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "partner context missing")
		return
	}

	var req struct {
		ProductID   int64 `json:"productId"`
		BottleCount int   `json:"bottleCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BottleCount < 1 {
		writeError(w, http.StatusBadRequest, "bottleCount must be at least 1")
		return
	}

	rates, err := s.getExchangeRates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load exchange rates")
		return
	}

	source, priceUSD, err := s.loadProductPricing(req.ProductID, rates)
	if err != nil {
		if errors.Is(err, errProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	vars := pricing.DefaultPocketCellarVariables()
	isBespoke := false

	var stored pricing.PocketCellarOverrides
	found, err := s.loadOverrides(partnerID, modelPocketCellar, &stored)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load partner overrides")
		return
	}
	if found {
		vars = stored.Apply(vars)
		isBespoke = true
	}

	if err := validatePocketCellarVariables(vars); err != nil {
		writeError(w, http.StatusInternalServerError, "stored overrides are invalid")
		return
	}

	writeJSON(w, http.StatusOK, pricing.CalculatePocketCellarPartner(priceUSD, source, req.BottleCount, vars, rates, isBespoke))
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.listQuotes(query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) listQuotes(query string) ([]quoteListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT
			reference,
			created_at,
			model,
			COALESCE(title, ''),
			totals_json
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]quoteListItem, 0)
	for rows.Next() {
		var item quoteListItem
		var totalsJSON string
		if err := rows.Scan(&item.Reference, &item.CreatedAt, &item.Model, &item.Title, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.TotalUSD = extractTotalFromJSON(totalsJSON)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func extractTotalFromJSON(totalsJSON string) float64 {
	var values map[string]float64
	if err := json.Unmarshal([]byte(totalsJSON), &values); err != nil {
		return 0
	}

	for _, key := range []string{"totalUsd", "finalPriceUsd", "total"} {
		if total, ok := values[key]; ok {
			return total
		}
	}

	return 0
}

func (s *server) storeQuote(model string, partnerID *int64, title, notes string, supplierPriceUSD float64, breakdown any, totalUSD, totalAED float64, isBespoke bool) error {
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("marshal quote breakdown: %w", err)
	}
	totalsJSON, err := json.Marshal(map[string]float64{"totalUsd": totalUSD, "totalAed": totalAED})
	if err != nil {
		return fmt.Errorf("marshal quote totals: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO quotes (reference, model, partner_id, title, notes, supplier_price_usd, breakdown_json, totals_json, is_bespoke)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), model, partnerID, strings.TrimSpace(title), strings.TrimSpace(notes), supplierPriceUSD, string(breakdownJSON), string(totalsJSON), isBespoke)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}

	return nil
}

var errProductNotFound = errors.New("product not found")

// loadProductPricing returns a product's source and its supplier price
// converted to USD.
func (s *server) loadProductPricing(productID int64, rates pricing.ExchangeRates) (pricing.ProductSource, float64, error) {
	var (
		source   string
		price    float64
		currency string
	)
	err := s.db.QueryRow(`
		SELECT source, supplier_price, supplier_currency FROM products WHERE id = ? AND active
	`, productID).Scan(&source, &price, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, errProductNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("query product: %w", err)
	}

	priceUSD, err := toUSD(price, currency, rates)
	if err != nil {
		return "", 0, err
	}

	return pricing.ProductSource(source), priceUSD, nil
}

// loadOverrides fills dst from the partner's active override row for the
// model. Returns false when no row exists.
func (s *server) loadOverrides(partnerID int64, model string, dst any) (bool, error) {
	var overridesJSON string
	err := s.db.QueryRow(`
		SELECT overrides_json FROM pricing_overrides
		WHERE partner_id = ? AND model = ? AND active
	`, partnerID, model).Scan(&overridesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query pricing overrides: %w", err)
	}

	if err := json.Unmarshal([]byte(overridesJSON), dst); err != nil {
		return false, fmt.Errorf("decode pricing overrides: %w", err)
	}

	return true, nil
}

// toUSD converts a supplier price into USD. An empty currency means the
// price is already quoted in USD.
func toUSD(price float64, currency string, rates pricing.ExchangeRates) (float64, error) {
	if price < 0 {
		return 0, fmt.Errorf("supplierPrice must be >= 0")
	}

	switch currency {
	case "", "USD":
		return price, nil
	case "GBP":
		return price * rates.GBPToUSD, nil
	case "EUR":
		return price * rates.EURToUSD, nil
	default:
		return 0, fmt.Errorf("supplierCurrency must be USD, GBP or EUR")
	}
}

func validModel(model string) bool {
	return model == modelPCO || model == modelB2B || model == modelPocketCellar
}

// Margin percents feed a gross-up division, so they must stay strictly
// below 100; the remaining percent fields only scale and may reach 100.
func validateMarginPercent(field string, value float64) error {
	if value < 0 || value >= 100 {
		return fmt.Errorf("%s must be >= 0 and < 100", field)
	}
	return nil
}

func validatePercent(field string, value float64) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("%s must be between 0 and 100", field)
	}
	return nil
}

func validateNonNegative(field string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%s must be >= 0", field)
	}
	return nil
}

func validatePCOVariables(v pricing.PCOVariables) error {
	if err := validateMarginPercent("ccMarginPercent", v.CCMarginPercent); err != nil {
		return err
	}
	if err := validatePercent("importDutyPercent", v.ImportDutyPercent); err != nil {
		return err
	}
	if err := validatePercent("transferCostPercent", v.TransferCostPercent); err != nil {
		return err
	}
	if err := validateMarginPercent("distributorMarginPercent", v.DistributorMarginPercent); err != nil {
		return err
	}
	return validatePercent("vatPercent", v.VATPercent)
}

func validateB2BVariables(v pricing.B2BVariables) error {
	return validateMarginPercent("ccMarginPercent", v.CCMarginPercent)
}

func validatePocketCellarVariables(v pricing.PocketCellarVariables) error {
	if err := validateMarginPercent("ccMarginPercent", v.CCMarginPercent); err != nil {
		return err
	}
	if err := validatePercent("importDutyPercent", v.ImportDutyPercent); err != nil {
		return err
	}
	if err := validatePercent("transferCostPercent", v.TransferCostPercent); err != nil {
		return err
	}
	if err := validateNonNegative("logisticsAirPerBottle", v.LogisticsAirPerBottle); err != nil {
		return err
	}
	if err := validateNonNegative("logisticsOceanPerBottle", v.LogisticsOceanPerBottle); err != nil {
		return err
	}
	if err := validateMarginPercent("distributorMarginPercent", v.DistributorMarginPercent); err != nil {
		return err
	}
	if err := validatePercent("salesCommissionPercent", v.SalesCommissionPercent); err != nil {
		return err
	}
	return validatePercent("vatPercent", v.VATPercent)
}
