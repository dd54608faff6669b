package seed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	demoPartnerName = "Vinum Trading LLC"
	demoCultxName   = "Chateau Montrose 2016"
	demoLocalName   = "Catena Zapata Malbec 2019"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureExchangeRates(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureDemoPartner(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureDemoProducts(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hashPassword(password)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// hashPassword must stay in sync with the credential check in cmd/server.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func ensureExchangeRates(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM exchange_rates WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check exchange rates existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO exchange_rates (id, gbp_to_usd, eur_to_usd, usd_to_aed)
		VALUES (1, ?, ?, ?)
	`, 1.27, 1.08, 3.67); err != nil {
		return fmt.Errorf("insert exchange rates singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureDemoPartner(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM partners WHERE name = ? LIMIT 1)`, demoPartnerName).Scan(&exists); err != nil {
		return fmt.Errorf("check demo partner existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO partners (name, api_key, notes, active)
		VALUES (?, ?, ?, TRUE)
	`, demoPartnerName, uuid.NewString(), "Seeded demo partner"); err != nil {
		return fmt.Errorf("insert demo partner: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureDemoProducts(tx *sql.Tx, stats *Stats) error {
	products := []struct {
		name     string
		producer string
		vintage  int
		source   string
		price    float64
		currency string
	}{
		{demoCultxName, "Chateau Montrose", 2016, "cultx", 180, "GBP"},
		{demoLocalName, "Catena Zapata", 2019, "local_inventory", 45, "USD"},
	}

	for _, p := range products {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE name = ? LIMIT 1)`, p.name).Scan(&exists); err != nil {
			return fmt.Errorf("check demo product existence: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO products (name, producer, vintage, source, supplier_price, supplier_currency, active)
			VALUES (?, ?, ?, ?, ?, ?, TRUE)
		`, p.name, p.producer, p.vintage, p.source, p.price, p.currency); err != nil {
			return fmt.Errorf("insert demo product: %w", err)
		}
		stats.Inserts++
	}

	return nil
}
