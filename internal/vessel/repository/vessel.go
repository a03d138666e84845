// Package repository persists registry vessels and arrival feed records.
//
// PostgreSQL (pgx) is the production store; SQLiteStore serves single-user
// and offline deployments from one file.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// ErrNotFound is returned when a vessel is not in the registry.
var ErrNotFound = errors.New("vessel not found")

// vesselColumns reads nullable registry columns as empty strings.
const vesselColumns = `
	ihslr_or_imo_ship_no,
	COALESCE(ship_name, ''), COALESCE(ex_name, ''), COALESCE(flag_name, ''),
	COALESCE(call_sign, ''), COALESCE(gross_tonnage, 0),
	COALESCE(stat_code5, ''), COALESCE(shiptype_level5, ''),
	COALESCE(shipon_eu_sanction_list, ''), COALESCE(shipon_ofac_non_sdn_sanction_list, ''),
	COALESCE(shipon_ofac_sanction_list, ''), COALESCE(shipon_un_sanction_list, ''),
	COALESCE(shipon_us_treasury_ofac_advisory_list, ''),
	COALESCE(group_beneficial_owner, ''), COALESCE(group_beneficial_owner_country_of_registration, ''),
	COALESCE(registered_owner, ''), COALESCE(registered_owner_country_of_registration, ''),
	COALESCE(operator, ''), COALESCE(operator_country_of_registration, '')`

// VesselRepository reads and writes the vessels table in PostgreSQL.
type VesselRepository struct {
	db *pgxpool.Pool
}

// NewVesselRepository creates a new VesselRepository.
func NewVesselRepository(db *pgxpool.Pool) *VesselRepository {
	return &VesselRepository{db: db}
}

// GetByIMO returns the vessel with the given IMO / LR number.
func (r *VesselRepository) GetByIMO(ctx context.Context, imo string) (*model.Vessel, error) {
	row := r.db.QueryRow(ctx, `SELECT `+vesselColumns+` FROM vessels WHERE ihslr_or_imo_ship_no = $1`, imo)
	v, err := scanVessel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vessel %s: %w", imo, err)
	}
	return v, nil
}

// SearchByName returns vessels whose current or former name contains name,
// case-insensitively.
func (r *VesselRepository) SearchByName(ctx context.Context, name string, limit int) ([]*model.Vessel, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(name)) + "%"
	rows, err := r.db.Query(ctx, `
		SELECT `+vesselColumns+`
		FROM vessels
		WHERE ship_name ILIKE $1 OR ex_name ILIKE $1
		ORDER BY ship_name
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search vessels: %w", err)
	}
	defer rows.Close()

	var out []*model.Vessel
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vessel: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Upsert inserts v or replaces the stored particulars for its IMO.
func (r *VesselRepository) Upsert(ctx context.Context, v *model.Vessel) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO vessels (
			ihslr_or_imo_ship_no, ship_name, ex_name, flag_name, call_sign, gross_tonnage,
			stat_code5, shiptype_level5,
			shipon_eu_sanction_list, shipon_ofac_non_sdn_sanction_list, shipon_ofac_sanction_list,
			shipon_un_sanction_list, shipon_us_treasury_ofac_advisory_list,
			group_beneficial_owner, group_beneficial_owner_country_of_registration,
			registered_owner, registered_owner_country_of_registration,
			operator, operator_country_of_registration, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19, now())
		ON CONFLICT (ihslr_or_imo_ship_no) DO UPDATE SET
			ship_name = EXCLUDED.ship_name,
			ex_name = EXCLUDED.ex_name,
			flag_name = EXCLUDED.flag_name,
			call_sign = EXCLUDED.call_sign,
			gross_tonnage = EXCLUDED.gross_tonnage,
			stat_code5 = EXCLUDED.stat_code5,
			shiptype_level5 = EXCLUDED.shiptype_level5,
			shipon_eu_sanction_list = EXCLUDED.shipon_eu_sanction_list,
			shipon_ofac_non_sdn_sanction_list = EXCLUDED.shipon_ofac_non_sdn_sanction_list,
			shipon_ofac_sanction_list = EXCLUDED.shipon_ofac_sanction_list,
			shipon_un_sanction_list = EXCLUDED.shipon_un_sanction_list,
			shipon_us_treasury_ofac_advisory_list = EXCLUDED.shipon_us_treasury_ofac_advisory_list,
			group_beneficial_owner = EXCLUDED.group_beneficial_owner,
			group_beneficial_owner_country_of_registration = EXCLUDED.group_beneficial_owner_country_of_registration,
			registered_owner = EXCLUDED.registered_owner,
			registered_owner_country_of_registration = EXCLUDED.registered_owner_country_of_registration,
			operator = EXCLUDED.operator,
			operator_country_of_registration = EXCLUDED.operator_country_of_registration,
			updated_at = now()`,
		vesselArgs(v)...,
	)
	if err != nil {
		return fmt.Errorf("upsert vessel %s: %w", v.IMO, err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *VesselRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVessel(row rowScanner) (*model.Vessel, error) {
	var v model.Vessel
	err := row.Scan(
		&v.IMO,
		&v.ShipName, &v.ExName, &v.FlagName,
		&v.CallSign, &v.GrossTonnage,
		&v.StatCode5, &v.ShiptypeLevel5,
		&v.OnEUSanctionList, &v.OnOFACNonSDNSanctionList,
		&v.OnOFACSanctionList, &v.OnUNSanctionList,
		&v.OnUSTreasuryOFACAdvisoryList,
		&v.GroupBeneficialOwner, &v.GroupBeneficialOwnerCountryOfRegistration,
		&v.RegisteredOwner, &v.RegisteredOwnerCountryOfRegistration,
		&v.Operator, &v.OperatorCountryOfRegistration,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func vesselArgs(v *model.Vessel) []any {
	return []any{
		v.IMO, v.ShipName, v.ExName, v.FlagName, v.CallSign, v.GrossTonnage,
		v.StatCode5, v.ShiptypeLevel5,
		string(v.OnEUSanctionList), string(v.OnOFACNonSDNSanctionList), string(v.OnOFACSanctionList),
		string(v.OnUNSanctionList), string(v.OnUSTreasuryOFACAdvisoryList),
		v.GroupBeneficialOwner, v.GroupBeneficialOwnerCountryOfRegistration,
		v.RegisteredOwner, v.RegisteredOwnerCountryOfRegistration,
		v.Operator, v.OperatorCountryOfRegistration,
	}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
