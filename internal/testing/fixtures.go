package testing

import (
	"database/sql"
	"testing"
)

// Seeding helpers insert reference data through raw SQL so module tests can
// build scenarios without importing each other's repositories.

// SeedFund inserts a fund and returns its id.
func SeedFund(t *testing.T, db *sql.DB, name string, cash float64) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO funds (fund_name, cash) VALUES (?, ?)`, name, cash)
	if err != nil {
		t.Fatalf("Failed to seed fund %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get seeded fund id: %v", err)
	}
	return id
}

// SeedIssuer inserts an issuer and returns its id. The incorporation code is
// mirrored into the domicile fields.
func SeedIssuer(t *testing.T, db *sql.DB, name, gicsSector, countryCode string) int64 {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO issuers (issuer_name, gics_sector, country_domicile_code, country_incorporation_code)
		VALUES (?, ?, ?, ?)`,
		name, gicsSector, countryCode, countryCode)
	if err != nil {
		t.Fatalf("Failed to seed issuer %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get seeded issuer id: %v", err)
	}
	return id
}

// SeedSecurity inserts a security. Pass nil sharesOutstanding for securities
// without float data.
func SeedSecurity(t *testing.T, db *sql.DB, ticker, name string, issuerID int64, sharesOutstanding *int64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO securities (ticker, security_name, security_type, issuer_id, shares_outstanding)
		VALUES (?, ?, 'equity', ?, ?)`,
		ticker, name, issuerID, sharesOutstanding)
	if err != nil {
		t.Fatalf("Failed to seed security %s: %v", ticker, err)
	}
}

// SeedPrice inserts a price point for a ticker on a date.
func SeedPrice(t *testing.T, db *sql.DB, ticker, date string, price float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO securities_prices (ticker, price_date, price) VALUES (?, ?, ?)`,
		ticker, date, price)
	if err != nil {
		t.Fatalf("Failed to seed price %s@%s: %v", ticker, date, err)
	}
}

// SeedHolding inserts a holding for a fund.
func SeedHolding(t *testing.T, db *sql.DB, fundID int64, ticker string, shares int64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO holdings (fund_id, ticker, shares) VALUES (?, ?, ?)`,
		fundID, ticker, shares)
	if err != nil {
		t.Fatalf("Failed to seed holding %d/%s: %v", fundID, ticker, err)
	}
}

// SeedEquity seeds an issuer, its security, and a latest price in one call.
// Returns the issuer id.
func SeedEquity(t *testing.T, db *sql.DB, ticker, issuerName, gicsSector, countryCode string, sharesOutstanding *int64, price float64) int64 {
	t.Helper()
	issuerID := SeedIssuer(t, db, issuerName, gicsSector, countryCode)
	SeedSecurity(t, db, ticker, issuerName, issuerID, sharesOutstanding)
	SeedPrice(t, db, ticker, "2025-01-02", price)
	return issuerID
}

// Int64Ptr returns a pointer to the given int64 value
func Int64Ptr(i int64) *int64 {
	return &i
}
