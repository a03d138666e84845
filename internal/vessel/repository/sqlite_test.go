package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

var vesselRowColumns = []string{
	"ihslr_or_imo_ship_no", "ship_name", "ex_name", "flag_name", "call_sign", "gross_tonnage",
	"stat_code5", "shiptype_level5",
	"eu", "ofac_non_sdn", "ofac", "un", "us_adv",
	"gbo", "gbo_country", "ro", "ro_country", "op", "op_country",
}

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db), mock
}

func TestSQLiteStore_GetByIMO_mock(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(vesselRowColumns).AddRow(
		"9123456", "OCEAN PRIDE", "", "Panama", "3FAB4", 81000,
		"A13A2TV", "Crude Oil Tanker",
		"False", "False", "True", "False", "False",
		"", "", "Unknown Holdings", "", "", "",
	)
	mock.ExpectQuery(`SELECT .+ FROM vessels WHERE ihslr_or_imo_ship_no = \?`).
		WithArgs("9123456").
		WillReturnRows(rows)

	v, err := s.GetByIMO(context.Background(), "9123456")
	if err != nil {
		t.Fatalf("GetByIMO: %v", err)
	}
	if v.ShipName != "OCEAN PRIDE" || v.GrossTonnage != 81000 {
		t.Errorf("unexpected vessel: %+v", v)
	}
	if !v.OnOFACSanctionList.IsListed() {
		t.Error("expected OFAC flag to be listed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteStore_GetByIMO_notFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM vessels`).WithArgs("1").WillReturnRows(sqlmock.NewRows(vesselRowColumns))

	_, err := s.GetByIMO(context.Background(), "1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_GetByIMO_storageError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")
	mock.ExpectQuery(`FROM vessels`).WithArgs("1").WillReturnError(boom)

	_, err := s.GetByIMO(context.Background(), "1")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped storage error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("storage error reported as not found")
	}
}

func TestSQLiteStore_InsertDue_mock(t *testing.T) {
	s, mock := newMockStore(t)
	due := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO vessels_due_to_arrive`).
		WithArgs("OCEAN PRIDE", "3FAB4", "9123456", "Panama", due.UnixMilli(), "SGSIN", "SGSIN", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	a := &model.Arrival{
		Kind: model.ArrivalDue, VesselName: "OCEAN PRIDE", Callsign: "3FAB4", IMO: "9123456",
		Flag: "Panama", DueToArriveTime: &due, LocationFrom: "SGSIN", LocationTo: "SGSIN",
	}
	if err := s.Insert(context.Background(), a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if a.ID != "42" {
		t.Errorf("ID: got %q, want 42", a.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteStore_InsertUnknownKind(t *testing.T) {
	s, _ := newMockStore(t)
	if err := s.Insert(context.Background(), &model.Arrival{Kind: "sailing"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSQLiteStore_LatestDue_mock(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(72 * time.Hour)
	due := from.Add(30 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "vessel_name", "callsign", "imo", "flag", "location_from", "location_to", "due_to_arrive_time", "fetched_at",
	}).AddRow("7", "OCEAN PRIDE", "3FAB4", "9123456", "Panama", "", "", due.UnixMilli(), nil)

	mock.ExpectQuery(`ROW_NUMBER\(\) OVER`).
		WithArgs(from.UnixMilli(), to.UnixMilli(), int64(500)).
		WillReturnRows(rows)

	got, err := s.LatestDue(context.Background(), DueQuery{From: from, To: to})
	if err != nil {
		t.Fatalf("LatestDue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 arrival, got %d", len(got))
	}
	if got[0].DueToArriveTime == nil || !got[0].DueToArriveTime.Equal(due) {
		t.Errorf("due time: got %v, want %v", got[0].DueToArriveTime, due)
	}
	if got[0].FetchedAt != nil {
		t.Error("expected nil fetched_at")
	}
	if got[0].Kind != model.ArrivalDue {
		t.Errorf("kind: got %q", got[0].Kind)
	}
}

// The tests below run against a real in-memory database.

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_vesselRoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	v := &model.Vessel{
		IMO: "9123456", ShipName: "OCEAN PRIDE", ExName: "NORDIC GRACE", StatCode5: "A13",
		OnUNSanctionList: model.SanctionListed, RegisteredOwner: "Acme",
	}
	if err := s.Upsert(ctx, v); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	v.RegisteredOwner = "Unknown"
	if err := s.Upsert(ctx, v); err != nil {
		t.Fatalf("Upsert (replace): %v", err)
	}

	got, err := s.GetByIMO(ctx, "9123456")
	if err != nil {
		t.Fatalf("GetByIMO: %v", err)
	}
	if *got != *v {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, v)
	}

	byName, err := s.SearchByName(ctx, "grace", 10)
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(byName) != 1 {
		t.Errorf("SearchByName(grace): got %d results, want 1", len(byName))
	}

	none, err := s.SearchByName(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("wildcards in input should match literally, got %d results", len(none))
	}

	if _, err := s.GetByIMO(ctx, "0000001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_latestDuePerVessel(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	due := now.Add(24 * time.Hour)
	older := now.Add(-2 * time.Hour)
	newer := now.Add(-1 * time.Hour)

	records := []*model.Arrival{
		{Kind: model.ArrivalDue, IMO: "9123456", VesselName: "OCEAN PRIDE", LocationFrom: "OLD", DueToArriveTime: &due, FetchedAt: &older},
		{Kind: model.ArrivalDue, IMO: "9123456", VesselName: "OCEAN PRIDE", LocationFrom: "NEW", DueToArriveTime: &due, FetchedAt: &newer},
		{Kind: model.ArrivalDue, IMO: "0", VesselName: "GHOST", DueToArriveTime: &due, FetchedAt: &newer},
		{Kind: model.ArrivalDue, IMO: "", VesselName: "PHANTOM", DueToArriveTime: &due, FetchedAt: &newer},
	}
	for _, a := range records {
		if err := s.Insert(ctx, a); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := s.LatestDue(ctx, DueQuery{From: now, To: now.Add(72 * time.Hour)})
	if err != nil {
		t.Fatalf("LatestDue: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 vessels, got %d", len(got))
	}
	for _, a := range got {
		if a.IMO == "9123456" && a.LocationFrom != "NEW" {
			t.Errorf("expected most recently fetched record, got %q", a.LocationFrom)
		}
	}

	one, err := s.LatestDue(ctx, DueQuery{IMO: "9123456"})
	if err != nil {
		t.Fatalf("LatestDue by IMO: %v", err)
	}
	if len(one) != 1 || one[0].LocationFrom != "NEW" {
		t.Errorf("LatestDue by IMO: %+v", one)
	}

	outside, err := s.LatestDue(ctx, DueQuery{From: now.Add(48 * time.Hour), To: now.Add(72 * time.Hour)})
	if err != nil {
		t.Fatalf("LatestDue: %v", err)
	}
	if len(outside) != 0 {
		t.Errorf("expected no vessels outside window, got %d", len(outside))
	}
}

func TestSQLiteStore_searchArrived(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	recent := time.Now().UTC().Add(-time.Hour)
	old := time.Now().UTC().Add(-90 * 24 * time.Hour)
	for _, a := range []*model.Arrival{
		{Kind: model.ArrivalArrived, IMO: "9123456", Callsign: "3FAB4", VesselName: "OCEAN PRIDE", ArrivedTime: &recent},
		{Kind: model.ArrivalArrived, IMO: "9999999", Callsign: "9VXY1", VesselName: "OCEAN STAR", ArrivedTime: &old},
		{Kind: model.ArrivalDeparted, IMO: "9123456", VesselName: "OCEAN PRIDE", DepartedTime: &recent},
	} {
		if err := s.Insert(ctx, a); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if a.ID == "" {
			t.Error("Insert did not set ID")
		}
	}

	since := time.Now().UTC().Add(-30 * 24 * time.Hour)
	for _, q := range []string{"ocean", "3fab4", "9123456"} {
		got, err := s.SearchArrived(ctx, q, since, 20)
		if err != nil {
			t.Fatalf("SearchArrived(%q): %v", q, err)
		}
		if len(got) != 1 || got[0].IMO != "9123456" {
			t.Errorf("SearchArrived(%q): %+v", q, got)
		}
	}
}
