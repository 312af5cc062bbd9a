package universe

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const issuersColumns = `issuer_id, issuer_name, gics_sector, gics_industry_grp, gics_industry,
	gics_sub_industry, country_domicile, country_incorporation, country_domicile_code,
	country_incorporation_code`

// IssuerRepository handles issuer database operations
type IssuerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewIssuerRepository creates a new issuer repository
func NewIssuerRepository(db *sql.DB, log zerolog.Logger) *IssuerRepository {
	return &IssuerRepository{
		db:  db,
		log: log.With().Str("repo", "issuers").Logger(),
	}
}

// Create inserts a new issuer and returns it with its assigned id
func (r *IssuerRepository) Create(issuer Issuer) (*Issuer, error) {
	if err := issuer.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create issuer: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT INTO issuers
		(issuer_name, gics_sector, gics_industry_grp, gics_industry, gics_sub_industry,
		 country_domicile, country_incorporation, country_domicile_code, country_incorporation_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issuer.Name,
		nullString(issuer.GICSSector),
		nullString(issuer.GICSIndustryGrp),
		nullString(issuer.GICSIndustry),
		nullString(issuer.GICSSubIndustry),
		nullString(issuer.CountryDomicile),
		nullString(issuer.CountryIncorporation),
		nullString(issuer.CountryDomicileCode),
		nullString(issuer.CountryIncorporationCode),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create issuer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer id: %w", err)
	}

	r.log.Info().Int64("issuer_id", id).Str("issuer_name", issuer.Name).Msg("Issuer created")
	return r.GetByID(id)
}

// GetByID retrieves an issuer by id. Returns (nil, nil) when not found.
func (r *IssuerRepository) GetByID(id int64) (*Issuer, error) {
	row := r.db.QueryRow("SELECT "+issuersColumns+" FROM issuers WHERE issuer_id = ?", id)
	issuer, err := scanIssuer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get issuer %d: %w", id, err)
	}
	return issuer, nil
}

// GetAll retrieves all issuers ordered by name
func (r *IssuerRepository) GetAll() ([]Issuer, error) {
	rows, err := r.db.Query("SELECT " + issuersColumns + " FROM issuers ORDER BY issuer_name")
	if err != nil {
		return nil, fmt.Errorf("failed to list issuers: %w", err)
	}
	defer rows.Close()

	var result []Issuer
	for rows.Next() {
		issuer, err := scanIssuer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issuer: %w", err)
		}
		result = append(result, *issuer)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssuer(row scanner) (*Issuer, error) {
	var issuer Issuer
	var sector, indGrp, ind, subInd, dom, inc, domCode, incCode sql.NullString
	err := row.Scan(&issuer.ID, &issuer.Name, &sector, &indGrp, &ind, &subInd,
		&dom, &inc, &domCode, &incCode)
	if err != nil {
		return nil, err
	}
	issuer.GICSSector = sector.String
	issuer.GICSIndustryGrp = indGrp.String
	issuer.GICSIndustry = ind.String
	issuer.GICSSubIndustry = subInd.String
	issuer.CountryDomicile = dom.String
	issuer.CountryIncorporation = inc.String
	issuer.CountryDomicileCode = domCode.String
	issuer.CountryIncorporationCode = incCode.String
	return &issuer, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
