package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// DueQuery selects due-to-arrive records. When IMO is set the window is
// ignored and only that vessel's latest record is returned.
type DueQuery struct {
	IMO   string
	From  time.Time
	To    time.Time
	Limit int
}

// ArrivalRepository reads and writes the three port-authority feed tables.
type ArrivalRepository struct {
	db *pgxpool.Pool
}

// NewArrivalRepository creates a new ArrivalRepository.
func NewArrivalRepository(db *pgxpool.Pool) *ArrivalRepository {
	return &ArrivalRepository{db: db}
}

// dueIdentity groups feed re-polls of one vessel: the declared IMO, or the
// declared name when the IMO is missing or a placeholder.
const dueIdentity = `COALESCE(NULLIF(NULLIF(TRIM(imo), ''), '0'), 'name:' || UPPER(COALESCE(vessel_name, '')))`

// LatestDue returns the most recently fetched due-to-arrive record per
// vessel, ordered by due time.
func (r *ArrivalRepository) LatestDue(ctx context.Context, q DueQuery) ([]*model.Arrival, error) {
	var (
		filter string
		args   []any
	)
	if q.IMO != "" {
		filter = `TRIM(imo) = $1`
		args = append(args, q.IMO)
	} else {
		filter = `due_to_arrive_time >= $1 AND due_to_arrive_time < $2`
		args = append(args, q.From, q.To)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, vessel_name, callsign, imo, flag, location_from, location_to, due_to_arrive_time, fetched_at
		FROM (
			SELECT DISTINCT ON (%[1]s)
				id::text AS id, COALESCE(vessel_name, '') AS vessel_name, COALESCE(callsign, '') AS callsign,
				COALESCE(imo, '') AS imo, COALESCE(flag, '') AS flag,
				COALESCE(location_from, '') AS location_from, COALESCE(location_to, '') AS location_to,
				due_to_arrive_time, fetched_at
			FROM vessels_due_to_arrive
			WHERE %[2]s
			ORDER BY %[1]s, fetched_at DESC NULLS LAST
		) latest
		ORDER BY due_to_arrive_time NULLS LAST, vessel_name
		LIMIT $%[3]d`, dueIdentity, filter, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due arrivals: %w", err)
	}
	defer rows.Close()

	var out []*model.Arrival
	for rows.Next() {
		a := &model.Arrival{Kind: model.ArrivalDue}
		if err := rows.Scan(
			&a.ID, &a.VesselName, &a.Callsign, &a.IMO, &a.Flag,
			&a.LocationFrom, &a.LocationTo, &a.DueToArriveTime, &a.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan due arrival: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SearchArrived returns vessels that arrived since the given time whose IMO
// or call sign equals query, or whose name contains it.
func (r *ArrivalRepository) SearchArrived(ctx context.Context, query string, since time.Time, limit int) ([]*model.Arrival, error) {
	query = strings.TrimSpace(query)
	rows, err := r.db.Query(ctx, `
		SELECT id::text, COALESCE(vessel_name, ''), COALESCE(callsign, ''), COALESCE(imo, ''),
		       COALESCE(flag, ''), COALESCE(location_from, ''), COALESCE(location_to, ''), arrived_time
		FROM vessel_arrivals
		WHERE arrived_time >= $1
		  AND (TRIM(imo) = $2 OR callsign ILIKE $3 OR vessel_name ILIKE $4)
		ORDER BY arrived_time DESC
		LIMIT $5`,
		since, query, escapeLike(query), "%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search arrivals: %w", err)
	}
	defer rows.Close()

	var out []*model.Arrival
	for rows.Next() {
		a := &model.Arrival{Kind: model.ArrivalArrived}
		if err := rows.Scan(
			&a.ID, &a.VesselName, &a.Callsign, &a.IMO,
			&a.Flag, &a.LocationFrom, &a.LocationTo, &a.ArrivedTime,
		); err != nil {
			return nil, fmt.Errorf("scan arrival: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Insert stores a feed record in the table for its kind and sets a.ID.
func (r *ArrivalRepository) Insert(ctx context.Context, a *model.Arrival) error {
	switch a.Kind {
	case model.ArrivalDue:
		err := r.db.QueryRow(ctx, `
			INSERT INTO vessels_due_to_arrive
				(vessel_name, callsign, imo, flag, due_to_arrive_time, location_from, location_to, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
			RETURNING id::text`,
			a.VesselName, a.Callsign, a.IMO, a.Flag, a.DueToArriveTime,
			a.LocationFrom, a.LocationTo, a.FetchedAt,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("insert vessels_due_to_arrive: %w", err)
		}
		return nil
	case model.ArrivalArrived, model.ArrivalDeparted:
		table, column := "vessel_arrivals", "arrived_time"
		ts := a.ArrivedTime
		if a.Kind == model.ArrivalDeparted {
			table, column = "vessel_departures", "departed_time"
			ts = a.DepartedTime
		}
		id := uuid.New()
		_, err := r.db.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, vessel_name, callsign, imo, flag, %s, location_from, location_to)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, table, column),
			id, a.VesselName, a.Callsign, a.IMO, a.Flag, ts, a.LocationFrom, a.LocationTo,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
		a.ID = id.String()
		return nil
	}
	return fmt.Errorf("unknown arrival kind %q", a.Kind)
}
