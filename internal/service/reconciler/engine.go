package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
)

// PanelState reads the global panel flag.
// Armed returns a usable value even when it also returns an error.
type PanelState interface {
	Armed(ctx context.Context) (bool, error)
}

// ScheduleStore provides schedule windows and exception rules.
type ScheduleStore interface {
	Window(ctx context.Context, buildingID int64) (domain.Window, error)
	Exceptions(ctx context.Context) (map[int64]domain.ExceptionRule, error)
	LogState(ctx context.Context, pointID, buildingID int64, state string) error
}

// Inventory is the system of record for buildings and proevents.
type Inventory interface {
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	Building(ctx context.Context, id int64) (domain.Building, error)
	ListPoints(ctx context.Context, buildingID int64, filter domain.PointFilter) ([]domain.Point, error)
	SetReactiveState(ctx context.Context, buildingID int64, target domain.ReactiveState, exclude []int64) (int64, error)
}

// Notifier delivers notifications, best effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used to evaluate windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithNotArmedRepeat re-raises an ongoing "not armed" condition once it has
// been raised for at least d. Zero raises it once per episode.
func WithNotArmedRepeat(d time.Duration) Option {
	return func(e *Engine) {
		e.notArmedRepeat = d
	}
}

// Engine reconciles buildings.
type Engine struct {
	panel     PanelState
	schedule  ScheduleStore
	inventory Inventory
	notifier  Notifier

	now            func() time.Time
	notArmedRepeat time.Duration

	locks *lockMap

	// notArmedMu guards notArmed.
	notArmedMu sync.Mutex
	// notArmed holds when the "not armed" condition was last raised per building.
	notArmed map[int64]time.Time
}

// New creates an engine.
func New(panel PanelState, schedule ScheduleStore, inventory Inventory, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		panel:     panel,
		schedule:  schedule,
		inventory: inventory,
		notifier:  notifier,
		now:       time.Now,
		locks:     newLockMap(),
		notArmed:  make(map[int64]time.Time),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Reconcile evaluates one building now, waiting for any reconciliation of the
// same building in progress. Storage failures are returned as well as recorded
// in the result.
func (e *Engine) Reconcile(ctx context.Context, buildingID int64) (domain.Result, error) {
	building, err := e.inventory.Building(ctx, buildingID)
	if err != nil {
		return domain.Result{BuildingID: buildingID, Action: domain.ActionNone, Err: err}, err
	}

	lock := e.locks.get(buildingID)

	lock.Lock()
	defer lock.Unlock()

	// A started building is always finished, even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	exceptions, err := e.exceptions(ctx)
	if err != nil {
		return domain.Result{BuildingID: buildingID, Building: building.Name, Action: domain.ActionNone, Err: err}, err
	}

	result := e.reconcile(ctx, building, exceptions)

	return result, result.Err
}

// ReconcileAll evaluates every building once. A building already being
// reconciled is skipped. Failures of one building are recorded in its result
// and do not stop the pass. Cancelling ctx stops the pass between buildings;
// a building that has started is always finished.
func (e *Engine) ReconcileAll(ctx context.Context) ([]domain.Result, error) {
	buildings, err := e.inventory.ListBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}

	exceptions, err := e.exceptions(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Result, 0, len(buildings))

	for _, building := range buildings {
		if ctx.Err() != nil {
			logger.WarnKV(ctx, "Reconciliation pass interrupted",
				"done", len(results),
				"total", len(buildings),
			)

			return results, ctx.Err()
		}

		lock := e.locks.get(building.ID)
		if !lock.TryLock() {
			logger.InfoKV(ctx, "Building is being reconciled elsewhere, skipping",
				"building_id", building.ID,
				"building", building.Name,
			)

			results = append(results, domain.Result{
				BuildingID: building.ID,
				Building:   building.Name,
				Action:     domain.ActionNone,
				Skipped:    domain.SkipBusy,
			})

			continue
		}

		result := e.reconcile(context.WithoutCancel(ctx), building, exceptions)

		lock.Unlock()

		results = append(results, result)
	}

	return results, nil
}

// Apply drives a building to target on operator request. Disarming honours
// ignore_on_disarm; arming is a manual override and touches every point.
// No notifications are sent.
func (e *Engine) Apply(ctx context.Context, buildingID int64, target domain.ReactiveState) (domain.Result, error) {
	building, err := e.inventory.Building(ctx, buildingID)
	if err != nil {
		return domain.Result{BuildingID: buildingID, Action: domain.ActionNone, Err: err}, err
	}

	lock := e.locks.get(buildingID)

	lock.Lock()
	defer lock.Unlock()

	ctx = context.WithoutCancel(ctx)

	result := domain.Result{
		BuildingID: building.ID,
		Building:   building.Name,
		Action:     domain.ActionArm,
		Target:     target,
	}

	var exclude []int64

	if target == domain.Disarmed {
		result.Action = domain.ActionDisarm

		exceptions, exErr := e.exceptions(ctx)
		if exErr != nil {
			result.Err = exErr

			return result, exErr
		}

		exclude = exceptions.IgnoredOnDisarm(building.ID)
	}

	result.Affected, err = e.inventory.SetReactiveState(ctx, building.ID, target, exclude)
	if err != nil {
		result.Err = fmt.Errorf("set building %d state: %w", building.ID, err)

		return result, result.Err
	}

	if result.Affected > 0 {
		e.logHistory(ctx, 0, building.ID, target.String())
	}

	logger.InfoKV(ctx, "Manual building action applied",
		"building_id", building.ID,
		"building", building.Name,
		"target", target.String(),
		"affected", result.Affected,
	)

	return result, nil
}

func (e *Engine) exceptions(ctx context.Context) (domain.ExceptionIndex, error) {
	rules, err := e.schedule.Exceptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exception rules: %w", err)
	}

	return domain.IndexExceptions(rules), nil
}

// reconcile runs the decision for one building. The caller holds its lock.
func (e *Engine) reconcile(ctx context.Context, building domain.Building, exceptions domain.ExceptionIndex) domain.Result {
	ctx = logger.WithKV(ctx, "building_id", building.ID, "building", building.Name)

	result := domain.Result{
		BuildingID: building.ID,
		Building:   building.Name,
		Action:     domain.ActionNone,
	}

	armed, err := e.panel.Armed(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Panel state unavailable, using default", "armed", armed, "error", err)
	}

	window, err := e.schedule.Window(ctx, building.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSchedule) ||
			errors.Is(err, domain.ErrInvalidClock) ||
			errors.Is(err, domain.ErrInvalidWindow) {
			logger.DebugKV(ctx, "Skipping building without usable schedule", "reason", err)

			e.clearNotArmed(building.ID)

			result.Skipped = domain.SkipNoSchedule

			return result
		}

		result.Err = fmt.Errorf("read building %d schedule: %w", building.ID, err)

		logger.ErrorKV(ctx, "Failed to read schedule", "error", result.Err)

		return result
	}

	now := e.now()
	within := window.Contains(domain.ClockOf(now))

	logger.DebugKV(ctx, "Evaluating building",
		"panel_armed", armed,
		"window", window.String(),
		"within_window", within,
	)

	switch {
	case armed && within:
		e.clearNotArmed(building.ID)
		e.arm(ctx, building, exceptions, &result)
	case armed:
		e.clearNotArmed(building.ID)
		e.disarm(ctx, building, exceptions, &result)
	case within:
		e.raiseNotArmed(ctx, building, exceptions, now, &result)
	default:
		e.clearNotArmed(building.ID)
	}

	if result.Err != nil {
		logger.ErrorKV(ctx, "Building reconciliation failed", "action", string(result.Action), "error", result.Err)
	}

	return result
}

func (e *Engine) arm(ctx context.Context, building domain.Building, exceptions domain.ExceptionIndex, result *domain.Result) {
	result.Action = domain.ActionArm
	result.Target = domain.Armed

	affected, err := e.inventory.SetReactiveState(ctx, building.ID, domain.Armed, exceptions.IgnoredOnArm(building.ID))
	if err != nil {
		result.Err = fmt.Errorf("arm building %d: %w", building.ID, err)

		return
	}

	result.Affected = affected

	if affected > 0 {
		logger.InfoKV(ctx, "Armed building by schedule", "affected", affected)
		e.logHistory(ctx, 0, building.ID, domain.Armed.String())
	}
}

func (e *Engine) disarm(ctx context.Context, building domain.Building, exceptions domain.ExceptionIndex, result *domain.Result) {
	result.Action = domain.ActionDisarm
	result.Target = domain.Disarmed

	ignored := exceptions.IgnoredOnDisarm(building.ID)

	points, err := e.inventory.ListPoints(ctx, building.ID, domain.PointFilter{Limit: domain.UnboundedPointLimit})
	if err != nil {
		result.Err = fmt.Errorf("list building %d points: %w", building.ID, err)

		return
	}

	candidates := make([]domain.Point, 0, len(points))

	for _, p := range points {
		if p.State == domain.Armed && !exceptions.Rule(building.ID, p.ID).IgnoreOnDisarm {
			candidates = append(candidates, p)
		}
	}

	affected, err := e.inventory.SetReactiveState(ctx, building.ID, domain.Disarmed, ignored)
	if err != nil {
		result.Err = fmt.Errorf("disarm building %d: %w", building.ID, err)

		return
	}

	result.Affected = affected

	if affected == 0 {
		return
	}

	logger.InfoKV(ctx, "Disarmed building by schedule", "affected", affected)
	e.logHistory(ctx, 0, building.ID, domain.Disarmed.String())

	notify := candidates
	if int64(len(candidates)) != affected {
		logger.WarnKV(ctx, "Changed rows differ from points read before the write",
			"affected", affected,
			"candidates", len(candidates),
		)

		if int64(len(candidates)) > affected {
			notify = candidates[:affected]
		}
	}

	notes := make([]domain.Notification, 0, len(notify))
	for _, p := range notify {
		notes = append(notes, domain.Notification{
			BuildingID:  building.ID,
			Building:    building.Name,
			PointID:     p.ID,
			Kind:        domain.KindDisarmed,
			PointScoped: true,
		})
	}

	e.deliver(ctx, notes)

	result.Notified = len(notes)
}

// deliver sends every notification concurrently and returns once all
// attempts have finished, so a building waits for at most one delivery timeout.
func (e *Engine) deliver(ctx context.Context, notes []domain.Notification) {
	var wg sync.WaitGroup

	for _, n := range notes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			e.notifier.Notify(ctx, n)
		}()
	}

	wg.Wait()
}

func (e *Engine) raiseNotArmed(
	ctx context.Context,
	building domain.Building,
	exceptions domain.ExceptionIndex,
	now time.Time,
	result *domain.Result,
) {
	result.Action = domain.ActionNotArmed

	points, err := e.inventory.ListPoints(ctx, building.ID, domain.PointFilter{Limit: domain.UnboundedPointLimit})
	if err != nil {
		result.Err = fmt.Errorf("list building %d points: %w", building.ID, err)

		return
	}

	var (
		first      domain.Point
		qualifying int
	)

	for _, p := range points {
		if exceptions.Rule(building.ID, p.ID).IgnoreOnDisarm {
			continue
		}

		if qualifying == 0 {
			first = p
		}

		qualifying++
	}

	if qualifying == 0 {
		e.clearNotArmed(building.ID)

		return
	}

	if !e.shouldRaiseNotArmed(building.ID, now) {
		logger.DebugKV(ctx, "Building still not armed, already reported", "qualifying", qualifying)

		return
	}

	logger.WarnKV(ctx, "Building is scheduled but the panel is disarmed",
		"qualifying", qualifying,
		"point_id", first.ID,
	)

	e.notifier.Notify(ctx, domain.Notification{
		BuildingID: building.ID,
		Building:   building.Name,
		PointID:    first.ID,
		Kind:       domain.KindNotArmed,
	})

	result.Notified = 1

	e.logHistory(ctx, first.ID, building.ID, string(domain.KindNotArmed))
}

// shouldRaiseNotArmed records a raise and reports whether one is due.
func (e *Engine) shouldRaiseNotArmed(buildingID int64, now time.Time) bool {
	e.notArmedMu.Lock()
	defer e.notArmedMu.Unlock()

	last, raised := e.notArmed[buildingID]
	if raised && (e.notArmedRepeat <= 0 || now.Sub(last) < e.notArmedRepeat) {
		return false
	}

	e.notArmed[buildingID] = now

	return true
}

func (e *Engine) clearNotArmed(buildingID int64) {
	e.notArmedMu.Lock()
	defer e.notArmedMu.Unlock()

	delete(e.notArmed, buildingID)
}

func (e *Engine) logHistory(ctx context.Context, pointID, buildingID int64, state string) {
	if err := e.schedule.LogState(ctx, pointID, buildingID, state); err != nil {
		logger.WarnKV(ctx, "Failed to record state history", "state", state, "error", err)
	}
}
