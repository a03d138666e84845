package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// SQLiteStore keeps the registry and arrival feeds in a single SQLite file.
// Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

// NewSQLiteStore wraps an already-migrated database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vessels (
		ihslr_or_imo_ship_no TEXT PRIMARY KEY,
		ship_name TEXT,
		ex_name TEXT,
		flag_name TEXT,
		call_sign TEXT,
		gross_tonnage INTEGER,
		stat_code5 TEXT,
		shiptype_level5 TEXT,
		shipon_eu_sanction_list TEXT,
		shipon_ofac_non_sdn_sanction_list TEXT,
		shipon_ofac_sanction_list TEXT,
		shipon_un_sanction_list TEXT,
		shipon_us_treasury_ofac_advisory_list TEXT,
		group_beneficial_owner TEXT,
		group_beneficial_owner_country_of_registration TEXT,
		registered_owner TEXT,
		registered_owner_country_of_registration TEXT,
		operator TEXT,
		operator_country_of_registration TEXT,
		updated_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_vessels_ship_name ON vessels(ship_name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS vessels_due_to_arrive (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vessel_name TEXT,
		callsign TEXT,
		imo TEXT,
		flag TEXT,
		due_to_arrive_time INTEGER,
		location_from TEXT,
		location_to TEXT,
		fetched_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_due_imo ON vessels_due_to_arrive(imo);
	CREATE INDEX IF NOT EXISTS idx_due_time ON vessels_due_to_arrive(due_to_arrive_time);

	CREATE TABLE IF NOT EXISTS vessel_arrivals (
		id TEXT PRIMARY KEY,
		vessel_name TEXT,
		callsign TEXT,
		imo TEXT,
		flag TEXT,
		arrived_time INTEGER,
		location_from TEXT,
		location_to TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_arrivals_time ON vessel_arrivals(arrived_time DESC);

	CREATE TABLE IF NOT EXISTS vessel_departures (
		id TEXT PRIMARY KEY,
		vessel_name TEXT,
		callsign TEXT,
		imo TEXT,
		flag TEXT,
		departed_time INTEGER,
		location_from TEXT,
		location_to TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetByIMO returns the vessel with the given IMO / LR number.
func (s *SQLiteStore) GetByIMO(ctx context.Context, imo string) (*model.Vessel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vesselColumns+` FROM vessels WHERE ihslr_or_imo_ship_no = ?`, imo)
	v, err := scanVessel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vessel %s: %w", imo, err)
	}
	return v, nil
}

// SearchByName returns vessels whose current or former name contains name,
// case-insensitively (ASCII).
func (s *SQLiteStore) SearchByName(ctx context.Context, name string, limit int) ([]*model.Vessel, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(name)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+vesselColumns+`
		FROM vessels
		WHERE ship_name LIKE ? ESCAPE '\' OR ex_name LIKE ? ESCAPE '\'
		ORDER BY ship_name
		LIMIT ?`, pattern, pattern, limit)
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
func (s *SQLiteStore) Upsert(ctx context.Context, v *model.Vessel) error {
	args := append(vesselArgs(v), time.Now().UnixMilli())
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vessels (
			ihslr_or_imo_ship_no, ship_name, ex_name, flag_name, call_sign, gross_tonnage,
			stat_code5, shiptype_level5,
			shipon_eu_sanction_list, shipon_ofac_non_sdn_sanction_list, shipon_ofac_sanction_list,
			shipon_un_sanction_list, shipon_us_treasury_ofac_advisory_list,
			group_beneficial_owner, group_beneficial_owner_country_of_registration,
			registered_owner, registered_owner_country_of_registration,
			operator, operator_country_of_registration, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("upsert vessel %s: %w", v.IMO, err)
	}
	return nil
}

// LatestDue returns the most recently fetched due-to-arrive record per
// vessel, ordered by due time.
func (s *SQLiteStore) LatestDue(ctx context.Context, q DueQuery) ([]*model.Arrival, error) {
	var (
		filter string
		args   []any
	)
	if q.IMO != "" {
		filter = `TRIM(imo) = ?`
		args = append(args, q.IMO)
	} else {
		filter = `due_to_arrive_time >= ? AND due_to_arrive_time < ?`
		args = append(args, q.From.UnixMilli(), q.To.UnixMilli())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vessel_name, callsign, imo, flag, location_from, location_to, due_to_arrive_time, fetched_at
		FROM (
			SELECT CAST(id AS TEXT) AS id, COALESCE(vessel_name, '') AS vessel_name, COALESCE(callsign, '') AS callsign,
			       COALESCE(imo, '') AS imo, COALESCE(flag, '') AS flag,
			       COALESCE(location_from, '') AS location_from, COALESCE(location_to, '') AS location_to,
			       due_to_arrive_time, fetched_at,
			       ROW_NUMBER() OVER (
			           PARTITION BY `+dueIdentity+`
			           ORDER BY fetched_at DESC
			       ) AS rn
			FROM vessels_due_to_arrive
			WHERE `+filter+`
		)
		WHERE rn = 1
		ORDER BY due_to_arrive_time IS NULL, due_to_arrive_time, vessel_name
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query due arrivals: %w", err)
	}
	defer rows.Close()

	var out []*model.Arrival
	for rows.Next() {
		a := &model.Arrival{Kind: model.ArrivalDue}
		var due, fetched sql.NullInt64
		if err := rows.Scan(
			&a.ID, &a.VesselName, &a.Callsign, &a.IMO, &a.Flag,
			&a.LocationFrom, &a.LocationTo, &due, &fetched,
		); err != nil {
			return nil, fmt.Errorf("scan due arrival: %w", err)
		}
		a.DueToArriveTime = fromMillis(due)
		a.FetchedAt = fromMillis(fetched)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SearchArrived returns vessels that arrived since the given time whose IMO
// or call sign equals query, or whose name contains it.
func (s *SQLiteStore) SearchArrived(ctx context.Context, query string, since time.Time, limit int) ([]*model.Arrival, error) {
	query = strings.TrimSpace(query)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(vessel_name, ''), COALESCE(callsign, ''), COALESCE(imo, ''),
		       COALESCE(flag, ''), COALESCE(location_from, ''), COALESCE(location_to, ''), arrived_time
		FROM vessel_arrivals
		WHERE arrived_time >= ?
		  AND (TRIM(imo) = ? OR callsign LIKE ? ESCAPE '\' OR vessel_name LIKE ? ESCAPE '\')
		ORDER BY arrived_time DESC
		LIMIT ?`,
		since.UnixMilli(), query, escapeLike(query), "%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search arrivals: %w", err)
	}
	defer rows.Close()

	var out []*model.Arrival
	for rows.Next() {
		a := &model.Arrival{Kind: model.ArrivalArrived}
		var arrived sql.NullInt64
		if err := rows.Scan(
			&a.ID, &a.VesselName, &a.Callsign, &a.IMO,
			&a.Flag, &a.LocationFrom, &a.LocationTo, &arrived,
		); err != nil {
			return nil, fmt.Errorf("scan arrival: %w", err)
		}
		a.ArrivedTime = fromMillis(arrived)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Insert stores a feed record in the table for its kind and sets a.ID.
func (s *SQLiteStore) Insert(ctx context.Context, a *model.Arrival) error {
	switch a.Kind {
	case model.ArrivalDue:
		fetched := a.FetchedAt
		if fetched == nil {
			now := time.Now()
			fetched = &now
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO vessels_due_to_arrive
				(vessel_name, callsign, imo, flag, due_to_arrive_time, location_from, location_to, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.VesselName, a.Callsign, a.IMO, a.Flag, toMillis(a.DueToArriveTime),
			a.LocationFrom, a.LocationTo, toMillis(fetched),
		)
		if err != nil {
			return fmt.Errorf("insert vessels_due_to_arrive: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert vessels_due_to_arrive: %w", err)
		}
		a.ID = fmt.Sprint(id)
		return nil
	case model.ArrivalArrived, model.ArrivalDeparted:
		table, column := "vessel_arrivals", "arrived_time"
		ts := a.ArrivedTime
		if a.Kind == model.ArrivalDeparted {
			table, column = "vessel_departures", "departed_time"
			ts = a.DepartedTime
		}
		id := uuid.NewString()
		_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, vessel_name, callsign, imo, flag, %s, location_from, location_to)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table, column),
			id, a.VesselName, a.Callsign, a.IMO, a.Flag, toMillis(ts), a.LocationFrom, a.LocationTo,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
		a.ID = id
		return nil
	}
	return fmt.Errorf("unknown arrival kind %q", a.Kind)
}

func toMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64).UTC()
	return &t
}
