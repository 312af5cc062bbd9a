package universe

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const pricesColumns = `price_id, ticker, price_date, price`

// PriceRepository is the price oracle: most-recent price by date per ticker,
// exact-date lookups, and price upserts from the administrative plane or the
// market-data feed. No interpolation, no nearest-neighbour fallback.
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// LatestPrice returns the price on the highest price_date for the ticker.
// Returns (nil, nil) when no price is on record.
func (r *PriceRepository) LatestPrice(ticker string) (*PricePoint, error) {
	row := r.db.QueryRow(
		"SELECT "+pricesColumns+` FROM securities_prices
		 WHERE ticker = ? ORDER BY price_date DESC LIMIT 1`,
		CanonicalTicker(ticker),
	)
	price, err := scanPrice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price for %s: %w", ticker, err)
	}
	return price, nil
}

// PriceOn returns the price with an exact price_date match.
// Returns (nil, nil) when no row exists for that date.
func (r *PriceRepository) PriceOn(ticker, date string) (*PricePoint, error) {
	row := r.db.QueryRow(
		"SELECT "+pricesColumns+` FROM securities_prices WHERE ticker = ? AND price_date = ?`,
		CanonicalTicker(ticker), date,
	)
	price, err := scanPrice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price for %s on %s: %w", ticker, date, err)
	}
	return price, nil
}

// LatestPrices returns the most recent price for each of the given tickers.
// Tickers with no price on record are absent from the result map.
func (r *PriceRepository) LatestPrices(tickers []string) (map[string]PricePoint, error) {
	result := make(map[string]PricePoint, len(tickers))
	for _, ticker := range tickers {
		price, err := r.LatestPrice(ticker)
		if err != nil {
			return nil, err
		}
		if price != nil {
			result[price.Ticker] = *price
		}
	}
	return result, nil
}

// Upsert inserts a price point, replacing any existing price for the same
// (ticker, date).
func (r *PriceRepository) Upsert(price PricePoint) error {
	price.Ticker = CanonicalTicker(price.Ticker)
	if err := price.Validate(); err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO securities_prices (ticker, price_date, price)
		VALUES (?, ?, ?)
		ON CONFLICT (ticker, price_date) DO UPDATE SET price = excluded.price`,
		price.Ticker, price.PriceDate, price.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s on %s: %w", price.Ticker, price.PriceDate, err)
	}

	r.log.Debug().
		Str("ticker", price.Ticker).
		Str("price_date", price.PriceDate).
		Float64("price", price.Price).
		Msg("Price upserted")
	return nil
}

// History returns all price points for a ticker, most recent first.
func (r *PriceRepository) History(ticker string, limit int) ([]PricePoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(
		"SELECT "+pricesColumns+` FROM securities_prices
		 WHERE ticker = ? ORDER BY price_date DESC LIMIT ?`,
		CanonicalTicker(ticker), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for %s: %w", ticker, err)
	}
	defer rows.Close()

	var result []PricePoint
	for rows.Next() {
		price, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		result = append(result, *price)
	}
	return result, rows.Err()
}

func scanPrice(row scanner) (*PricePoint, error) {
	var price PricePoint
	err := row.Scan(&price.ID, &price.Ticker, &price.PriceDate, &price.Price)
	if err != nil {
		return nil, err
	}
	return &price, nil
}
