package integration

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/repository/inventory"
)

// memoryInventory stands in for the Postgres system of record.
type memoryInventory struct {
	mu        sync.Mutex
	buildings []domain.Building
	points    []domain.Point
}

func (m *memoryInventory) add(building domain.Building, states ...domain.ReactiveState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buildings = append(m.buildings, building)

	for i, state := range states {
		id := building.ID*100 + int64(i) + 1

		m.points = append(m.points, domain.Point{
			ID:         id,
			BuildingID: building.ID,
			Name:       fmt.Sprintf("%s door %d", building.Name, i+1),
			State:      state,
		})
	}
}

func (m *memoryInventory) states(buildingID int64) map[int64]domain.ReactiveState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]domain.ReactiveState)

	for _, p := range m.points {
		if p.BuildingID == buildingID {
			out[p.ID] = p.State
		}
	}

	return out
}

func (m *memoryInventory) Ping(context.Context) error {
	return nil
}

func (m *memoryInventory) ListBuildings(context.Context) ([]domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.buildings), nil
}

func (m *memoryInventory) Building(_ context.Context, id int64) (domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.buildings {
		if b.ID == id {
			return b, nil
		}
	}

	return domain.Building{}, fmt.Errorf("%w: %d", inventory.ErrBuildingNotFound, id)
}

func (m *memoryInventory) ListPoints(_ context.Context, buildingID int64, filter domain.PointFilter) ([]domain.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Point

	for _, p := range m.points {
		if p.BuildingID != buildingID {
			continue
		}

		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}

		out = append(out, p)
	}

	return out, nil
}

func (m *memoryInventory) SetReactiveState(
	_ context.Context,
	buildingID int64,
	target domain.ReactiveState,
	exclude []int64,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed int64

	for i := range m.points {
		p := &m.points[i]

		if p.BuildingID != buildingID || p.State == target || slices.Contains(exclude, p.ID) {
			continue
		}

		p.State = target
		changed++
	}

	return changed, nil
}
