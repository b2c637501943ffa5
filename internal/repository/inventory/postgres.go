package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
)

// ErrBuildingNotFound is returned when a building id is not in the inventory.
var ErrBuildingNotFound = errors.New("building not found")

// Options tunes the gateway.
type Options struct {
	// BuildingsTTL is how long ListBuildings results are reused.
	BuildingsTTL time.Duration
	// Now overrides the clock used for cache expiry.
	Now func() time.Time
}

// Gateway reads and writes proevent state in the inventory database.
type Gateway struct {
	db *sql.DB

	buildingsTTL time.Duration
	now          func() time.Time

	// mu guards the building cache.
	mu          sync.Mutex
	buildings   []domain.Building
	refreshedAt time.Time
}

// Open connects to Postgres with lib/pq, applies pool limits and pings.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open inventory database: %w", err)
	}

	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping inventory database: %w", err)
	}

	return db, nil
}

// NewGateway wraps an open database handle.
func NewGateway(db *sql.DB, opts Options) *Gateway {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Gateway{
		db:           db,
		buildingsTTL: opts.BuildingsTTL,
		now:          opts.Now,
	}
}

// Ping checks that the database is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// ListBuildings returns every building that owns at least one proevent, ordered by name.
func (g *Gateway) ListBuildings(ctx context.Context) ([]domain.Building, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.buildings != nil && g.now().Sub(g.refreshedAt) < g.buildingsTTL {
		logger.DebugKV(ctx, "Returning buildings from cache", "count", len(g.buildings))

		return append([]domain.Building(nil), g.buildings...), nil
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT DISTINCT b.building_prk, b.building_name
		FROM building_tbl b
		JOIN proevent_tbl p ON p.building_frk = b.building_prk
		ORDER BY b.building_name, b.building_prk`)
	if err != nil {
		return nil, fmt.Errorf("query buildings: %w", err)
	}
	defer rows.Close()

	buildings := make([]domain.Building, 0)

	for rows.Next() {
		var b domain.Building
		if err = rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}

		buildings = append(buildings, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buildings: %w", err)
	}

	g.buildings = buildings
	g.refreshedAt = g.now()

	logger.InfoKV(ctx, "Fetched buildings from inventory", "count", len(buildings))

	return append([]domain.Building(nil), buildings...), nil
}

// Building returns one building by id, or ErrBuildingNotFound.
func (g *Gateway) Building(ctx context.Context, id int64) (domain.Building, error) {
	b := domain.Building{ID: id}

	err := g.db.QueryRowContext(ctx,
		`SELECT building_name FROM building_tbl WHERE building_prk = $1`,
		id,
	).Scan(&b.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Building{}, fmt.Errorf("%w: %d", ErrBuildingNotFound, id)
		}

		return domain.Building{}, fmt.Errorf("query building %d: %w", id, err)
	}

	return b, nil
}

// ListPoints returns a page of a building's proevents in id order.
func (g *Gateway) ListPoints(ctx context.Context, buildingID int64, filter domain.PointFilter) ([]domain.Point, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPointLimit
	}

	offset := max(filter.Offset, 0)

	rows, err := g.db.QueryContext(ctx, `
		SELECT proevent_prk, building_frk, device_frk, proevent_name, reactive_state
		FROM proevent_tbl
		WHERE building_frk = $1
		  AND ($2 = '' OR proevent_name ILIKE '%' || $2 || '%')
		ORDER BY proevent_prk
		LIMIT $3 OFFSET $4`,
		buildingID, filter.Search, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query building %d proevents: %w", buildingID, err)
	}
	defer rows.Close()

	points := make([]domain.Point, 0)

	for rows.Next() {
		var (
			p        domain.Point
			deviceID sql.NullInt64
			state    sql.NullInt64
		)

		if err = rows.Scan(&p.ID, &p.BuildingID, &deviceID, &p.Name, &state); err != nil {
			return nil, fmt.Errorf("scan proevent: %w", err)
		}

		p.DeviceID = deviceID.Int64
		p.State = domain.ParseReactiveState(state.Int64)
		points = append(points, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proevents: %w", err)
	}

	return points, nil
}

// SetReactiveState moves every proevent of a building that is not already in
// target to target, skipping the ids in exclude. It returns the number of rows
// actually changed. An empty exclude set affects the whole building.
func (g *Gateway) SetReactiveState(
	ctx context.Context,
	buildingID int64,
	target domain.ReactiveState,
	exclude []int64,
) (int64, error) {
	if exclude == nil {
		exclude = []int64{}
	}

	result, err := g.db.ExecContext(ctx, `
		UPDATE proevent_tbl
		SET reactive_state = $2
		WHERE building_frk = $1
		  AND reactive_state IS DISTINCT FROM $2
		  AND NOT (proevent_prk = ANY($3))`,
		buildingID, int(target), pq.Array(exclude),
	)
	if err != nil {
		return 0, fmt.Errorf("set building %d proevents %s: %w", buildingID, target, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	logger.InfoKV(ctx, "Updated proevent reactive state",
		"building_id", buildingID,
		"target", target.String(),
		"excluded", len(exclude),
		"affected", affected,
	)

	return affected, nil
}
