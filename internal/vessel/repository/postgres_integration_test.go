//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmerrifield20/seasense/internal/testutil/containers"
	"github.com/jmerrifield20/seasense/internal/vessel/model"
	"github.com/jmerrifield20/seasense/internal/vessel/repository"
)

func TestVesselRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewVesselRepository(containers.NewPostgres(t))
	require.NoError(t, repo.Ping(ctx))

	v := &model.Vessel{
		IMO: "9176187", ShipName: "PACIFIC DAWN", ExName: "SEA DAWN",
		StatCode5: "A12B2TR", OnOFACSanctionList: model.SanctionListed, RegisteredOwner: "Dawn Maritime SA",
	}
	require.NoError(t, repo.Upsert(ctx, v))
	require.NoError(t, repo.Upsert(ctx, &model.Vessel{IMO: "9321483", ShipName: "BALTIC 100% TRADER"}))

	got, err := repo.GetByIMO(ctx, "9176187")
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = repo.GetByIMO(ctx, "1111111")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Former names match; LIKE wildcards in the query are literal.
	found, err := repo.SearchByName(ctx, "sea da", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "9176187", found[0].IMO)

	found, err = repo.SearchByName(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "9321483", found[0].IMO)

	found, err = repo.SearchByName(ctx, "%", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// Upsert replaces particulars.
	v.RegisteredOwner = "Unknown"
	require.NoError(t, repo.Upsert(ctx, v))
	got, err = repo.GetByIMO(ctx, "9176187")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", got.RegisteredOwner)
}

func TestArrivalRepository_LatestDue(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewArrivalRepository(containers.NewPostgres(t))

	now := time.Now().UTC().Truncate(time.Second)
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	for _, a := range []*model.Arrival{
		// Two polls of one vessel; the later fetch wins.
		{Kind: model.ArrivalDue, VesselName: "NORDIC STAR", IMO: "9074729", DueToArriveTime: at(6 * time.Hour), FetchedAt: at(-2 * time.Hour)},
		{Kind: model.ArrivalDue, VesselName: "NORDIC STAR", IMO: "9074729", DueToArriveTime: at(8 * time.Hour), FetchedAt: at(-1 * time.Hour)},
		// Placeholder IMOs group by name.
		{Kind: model.ArrivalDue, VesselName: "MYSTERY LADY", IMO: "0", DueToArriveTime: at(2 * time.Hour), FetchedAt: at(-1 * time.Hour)},
		{Kind: model.ArrivalDue, VesselName: "OTHER SHIP", IMO: "0", DueToArriveTime: at(3 * time.Hour), FetchedAt: at(-1 * time.Hour)},
		// Outside the window.
		{Kind: model.ArrivalDue, VesselName: "LATE", IMO: "9402081", DueToArriveTime: at(100 * time.Hour), FetchedAt: at(-1 * time.Hour)},
	} {
		require.NoError(t, repo.Insert(ctx, a))
		assert.NotEmpty(t, a.ID)
	}

	due, err := repo.LatestDue(ctx, repository.DueQuery{From: now, To: now.Add(72 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, "MYSTERY LADY", due[0].VesselName)
	assert.Equal(t, "OTHER SHIP", due[1].VesselName)
	assert.Equal(t, "NORDIC STAR", due[2].VesselName)
	assert.True(t, due[2].DueToArriveTime.Equal(*at(8*time.Hour)))
	assert.Equal(t, model.ArrivalDue, due[2].Kind)

	due, err = repo.LatestDue(ctx, repository.DueQuery{IMO: "9402081"})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "LATE", due[0].VesselName)
}

func TestArrivalRepository_SearchArrived(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewArrivalRepository(containers.NewPostgres(t))

	now := time.Now().UTC()
	recent, old := now.Add(-2*time.Hour), now.Add(-48*time.Hour)
	for _, a := range []*model.Arrival{
		{Kind: model.ArrivalArrived, VesselName: "CASPIAN PEARL", Callsign: "D6FX9", IMO: "9812341", ArrivedTime: &recent},
		{Kind: model.ArrivalArrived, VesselName: "PEARL OF THE SEA", IMO: "9000001", ArrivedTime: &old},
		{Kind: model.ArrivalDeparted, VesselName: "PEARL RIVER", IMO: "9000002", DepartedTime: &recent},
	} {
		require.NoError(t, repo.Insert(ctx, a))
	}

	since := now.Add(-24 * time.Hour)
	for _, q := range []string{"pearl", "9812341", "d6fx9", " 9812341 "} {
		got, err := repo.SearchArrived(ctx, q, since, 10)
		require.NoError(t, err, q)
		require.Len(t, got, 1, q)
		assert.Equal(t, "CASPIAN PEARL", got[0].VesselName, q)
	}

	got, err := repo.SearchArrived(ctx, "pearl", now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2, "departures are not searched")
}
