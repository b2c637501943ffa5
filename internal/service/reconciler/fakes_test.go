package reconciler

import (
	"context"
	"errors"
	"slices"
	"sync"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

var errStorage = errors.New("storage unavailable")

type fakePanel struct {
	mu    sync.Mutex
	armed bool
	err   error
}

func (p *fakePanel) Armed(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return true, p.err
	}

	return p.armed, nil
}

func (p *fakePanel) set(armed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.armed = armed
}

type historyRow struct {
	pointID    int64
	buildingID int64
	state      string
}

type fakeSchedule struct {
	mu        sync.Mutex
	windows   map[int64][2]string
	windowErr map[int64]error
	rules     map[int64]domain.ExceptionRule
	rulesErr  error
	history   []historyRow
}

func newFakeSchedule() *fakeSchedule {
	return &fakeSchedule{
		windows:   make(map[int64][2]string),
		windowErr: make(map[int64]error),
		rules:     make(map[int64]domain.ExceptionRule),
	}
}

func (s *fakeSchedule) Window(_ context.Context, buildingID int64) (domain.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.windowErr[buildingID]; err != nil {
		return domain.Window{}, err
	}

	w, ok := s.windows[buildingID]
	if !ok {
		return domain.Window{}, domain.ErrNoSchedule
	}

	return domain.ParseWindow(w[0], w[1])
}

func (s *fakeSchedule) Exceptions(context.Context) (map[int64]domain.ExceptionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rulesErr != nil {
		return nil, s.rulesErr
	}

	rules := make(map[int64]domain.ExceptionRule, len(s.rules))
	for id, rule := range s.rules {
		rules[id] = rule
	}

	return rules, nil
}

func (s *fakeSchedule) LogState(ctx context.Context, pointID, buildingID int64, state string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, historyRow{pointID: pointID, buildingID: buildingID, state: state})

	return nil
}

func (s *fakeSchedule) setWindow(buildingID int64, start, end string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[buildingID] = [2]string{start, end}
}

func (s *fakeSchedule) setRule(rule domain.ExceptionRule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[rule.PointID] = rule
}

type fakeInventory struct {
	mu        sync.Mutex
	buildings []domain.Building
	points    map[int64][]*domain.Point

	listErr  error
	pointErr error
	writeErr map[int64]error

	// beforeWrite runs outside the mutex at the start of every write.
	beforeWrite func(buildingID int64)

	writeCalls int
	changed    int64
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		points:   make(map[int64][]*domain.Point),
		writeErr: make(map[int64]error),
	}
}

func (f *fakeInventory) addBuilding(id int64, name string, states ...domain.ReactiveState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buildings = append(f.buildings, domain.Building{ID: id, Name: name})

	for i, state := range states {
		f.points[id] = append(f.points[id], &domain.Point{
			ID:         id*100 + int64(i) + 1,
			BuildingID: id,
			Name:       name,
			State:      state,
		})
	}
}

func (f *fakeInventory) ListBuildings(context.Context) ([]domain.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	return slices.Clone(f.buildings), nil
}

func (f *fakeInventory) Building(_ context.Context, id int64) (domain.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.buildings {
		if b.ID == id {
			return b, nil
		}
	}

	return domain.Building{}, errBuildingMissing
}

var errBuildingMissing = errors.New("building not found")

func (f *fakeInventory) ListPoints(_ context.Context, buildingID int64, _ domain.PointFilter) ([]domain.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pointErr != nil {
		return nil, f.pointErr
	}

	points := make([]domain.Point, 0, len(f.points[buildingID]))
	for _, p := range f.points[buildingID] {
		points = append(points, *p)
	}

	return points, nil
}

func (f *fakeInventory) SetReactiveState(
	_ context.Context,
	buildingID int64,
	target domain.ReactiveState,
	exclude []int64,
) (int64, error) {
	if f.beforeWrite != nil {
		f.beforeWrite(buildingID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.writeCalls++

	if err := f.writeErr[buildingID]; err != nil {
		return 0, err
	}

	var affected int64

	for _, p := range f.points[buildingID] {
		if p.State != target && !slices.Contains(exclude, p.ID) {
			p.State = target
			affected++
		}
	}

	f.changed += affected

	return affected, nil
}

func (f *fakeInventory) state(pointID int64) domain.ReactiveState {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, points := range f.points {
		for _, p := range points {
			if p.ID == pointID {
				return p.State
			}
		}
	}

	return -1
}

func (f *fakeInventory) setState(pointID int64, state domain.ReactiveState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, points := range f.points {
		for _, p := range points {
			if p.ID == pointID {
				p.State = state
			}
		}
	}
}

func (f *fakeInventory) totalChanged() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.changed
}

// recordingNotifier drops notifications handed over with a finished context,
// as a network dispatcher would.
type recordingNotifier struct {
	mu      sync.Mutex
	sent    []domain.Notification
	dropped int

	// delay is how long every delivery takes.
	delay time.Duration
}

func (r *recordingNotifier) Notify(ctx context.Context, n domain.Notification) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil {
		r.dropped++

		return
	}

	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) droppedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dropped
}

func (r *recordingNotifier) notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.sent)
}
