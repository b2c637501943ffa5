package inventory

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

var errTestQuery = errors.New("connection reset")

// int64Array matches the text form lib/pq sends for an int64 array parameter.
type int64Array string

// Match implements sqlmock.Argument.
func (a int64Array) Match(v driver.Value) bool {
	s, ok := v.(string)

	return ok && s == string(a)
}

func setupMockGateway(t *testing.T, now func() time.Time) (*sql.DB, sqlmock.Sqlmock, *Gateway) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, mock, NewGateway(db, Options{BuildingsTTL: 5 * time.Minute, Now: now})
}

// TestListBuildings_CachesWithinTTL ensures the database is queried once per TTL.
func TestListBuildings_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	_, mock, gw := setupMockGateway(t, func() time.Time { return current })

	mock.ExpectQuery(`SELECT DISTINCT b.building_prk, b.building_name`).
		WillReturnRows(sqlmock.NewRows([]string{"building_prk", "building_name"}).
			AddRow(int64(2), "Annex").
			AddRow(int64(1), "HQ"))

	ctx := context.Background()

	first, err := gw.ListBuildings(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Building{{ID: 2, Name: "Annex"}, {ID: 1, Name: "HQ"}}, first)

	current = current.Add(time.Minute)

	second, err := gw.ListBuildings(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Expired: hits the database again.
	current = current.Add(5 * time.Minute)

	mock.ExpectQuery(`SELECT DISTINCT b.building_prk, b.building_name`).
		WillReturnRows(sqlmock.NewRows([]string{"building_prk", "building_name"}).
			AddRow(int64(1), "HQ"))

	third, err := gw.ListBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, third, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestListBuildings_Error does not poison the cache.
func TestListBuildings_Error(t *testing.T) {
	t.Parallel()

	_, mock, gw := setupMockGateway(t, nil)

	mock.ExpectQuery(`SELECT DISTINCT`).WillReturnError(errTestQuery)

	_, err := gw.ListBuildings(context.Background())
	require.ErrorIs(t, err, errTestQuery)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestBuilding_NotFound maps sql.ErrNoRows to ErrBuildingNotFound.
func TestBuilding_NotFound(t *testing.T) {
	t.Parallel()

	_, mock, gw := setupMockGateway(t, nil)

	mock.ExpectQuery(`SELECT building_name FROM building_tbl`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := gw.Building(context.Background(), 9)
	require.ErrorIs(t, err, ErrBuildingNotFound)

	mock.ExpectQuery(`SELECT building_name FROM building_tbl`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"building_name"}).AddRow("HQ"))

	b, err := gw.Building(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.Building{ID: 1, Name: "HQ"}, b)

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestListPoints applies filter defaults and normalizes states.
func TestListPoints(t *testing.T) {
	t.Parallel()

	_, mock, gw := setupMockGateway(t, nil)

	mock.ExpectQuery(`FROM proevent_tbl`).
		WithArgs(int64(1), "door", domain.DefaultPointLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"proevent_prk", "building_frk", "device_frk", "proevent_name", "reactive_state",
		}).
			AddRow(int64(10), int64(1), int64(100), "Front door", int64(1)).
			AddRow(int64(11), int64(1), nil, "Back door", int64(0)).
			AddRow(int64(12), int64(1), int64(101), "Side door", nil))

	points, err := gw.ListPoints(context.Background(), 1, domain.PointFilter{Search: "door", Offset: -3})
	require.NoError(t, err)
	require.Equal(t, []domain.Point{
		{ID: 10, BuildingID: 1, DeviceID: 100, Name: "Front door", State: domain.Armed},
		{ID: 11, BuildingID: 1, Name: "Back door", State: domain.Disarmed},
		{ID: 12, BuildingID: 1, DeviceID: 101, Name: "Side door", State: domain.Disarmed},
	}, points)

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestSetReactiveState passes the exclusion set as one array parameter and returns affected rows.
func TestSetReactiveState(t *testing.T) {
	t.Parallel()

	_, mock, gw := setupMockGateway(t, nil)

	mock.ExpectExec(`UPDATE proevent_tbl`).
		WithArgs(int64(1), int(domain.Disarmed), int64Array("{11,13}")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := gw.SetReactiveState(context.Background(), 1, domain.Disarmed, []int64{11, 13})
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	// Nil exclusion set means the whole building.
	mock.ExpectExec(`UPDATE proevent_tbl`).
		WithArgs(int64(1), int(domain.Armed), int64Array("{}")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err = gw.SetReactiveState(context.Background(), 1, domain.Armed, nil)
	require.NoError(t, err)
	require.Zero(t, affected)

	mock.ExpectExec(`UPDATE proevent_tbl`).WillReturnError(errTestQuery)

	_, err = gw.SetReactiveState(context.Background(), 1, domain.Armed, nil)
	require.ErrorIs(t, err, errTestQuery)

	require.NoError(t, mock.ExpectationsWereMet())
}
