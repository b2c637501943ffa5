package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/arming-scheduler/internal/api/rest"
	"github.com/oshokin/arming-scheduler/internal/config"
	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/notify"
	"github.com/oshokin/arming-scheduler/internal/repository/panel"
	"github.com/oshokin/arming-scheduler/internal/repository/schedule"
	"github.com/oshokin/arming-scheduler/internal/service/reconciler"
	"github.com/oshokin/arming-scheduler/internal/service/scheduler"
)

// receiver collects ProServer messages, one per connection.
type receiver struct {
	mu       sync.Mutex
	messages []string
}

func startReceiver(t *testing.T) (*receiver, string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = listener.Close()
	})

	r := new(receiver)

	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}

			data, _ := io.ReadAll(conn)
			_ = conn.Close()

			r.mu.Lock()
			r.messages = append(r.messages, string(data))
			r.mu.Unlock()
		}
	}()

	return r, listener.Addr().String()
}

func (r *receiver) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.messages...)
}

// clock is a settable wall clock.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) set(hour, minute int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = time.Date(2026, time.March, 2, hour, minute, 0, 0, time.Local)
}

type stack struct {
	server    *httptest.Server
	inventory *memoryInventory
	receiver  *receiver
	clock     *clock
	loop      *scheduler.Loop
}

func newStack(t *testing.T) *stack {
	t.Helper()

	ctx := context.Background()
	dir := t.TempDir()

	store, err := schedule.New(filepath.Join(dir, "schedules.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	panelState := panel.NewState(panel.NewFileCache(filepath.Join(dir, "app_cache.json")), config.DefaultPanelKey)
	require.NoError(t, panelState.Init(ctx))

	inv := new(memoryInventory)
	inv.add(domain.Building{ID: 1, Name: "HQ"}, domain.Armed, domain.Armed, domain.Armed)
	inv.add(domain.Building{ID: 2, Name: "Depot"}, domain.Disarmed)

	rcv, address := startReceiver(t)

	clk := new(clock)
	clk.set(10, 0)

	engine := reconciler.New(panelState, store, inv,
		notify.NewProServer(address, config.DefaultProServerTag, time.Second),
		reconciler.WithClock(clk.Now),
	)

	loop := scheduler.New(engine, time.Hour)

	handler := rest.NewHandler(panelState, store, inv, loop, engine, time.Second)
	server := httptest.NewServer(rest.NewRouter(handler, config.DefaultCORSOrigins()))

	t.Cleanup(server.Close)

	return &stack{
		server:    server,
		inventory: inv,
		receiver:  rcv,
		clock:     clk,
		loop:      loop,
	}
}

func (s *stack) do(t *testing.T, method, path string, body, out any) {
	t.Helper()

	var payload io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, s.server.URL+path, payload)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode, "%s %s", method, path)

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

// TestScheduleLifecycle drives one building through a disarm, an arm and a
// "not armed" episode using only the HTTP API.
func TestScheduleLifecycle(t *testing.T) {
	t.Parallel()

	s := newStack(t)

	var ignored rest.IgnoreBulkResponse

	s.do(t, http.MethodPost, "/api/proevents/ignore/bulk", rest.IgnoredItemBulkRequest{
		Items: []rest.IgnoredItemRequest{{ItemID: 103, BuildingFrk: 1, IgnoreOnDisarm: true}},
	}, &ignored)
	require.Equal(t, []int64{1}, ignored.Reevaluated)

	// Storing a night schedule at 10:00 disarms everything but the ignored point.
	s.do(t, http.MethodPost, "/api/buildings/1/time", rest.BuildingTimeRequest{
		BuildingID: 1,
		StartTime:  "18:00",
		EndTime:    "23:00",
	}, nil)

	require.Equal(t, map[int64]domain.ReactiveState{
		101: domain.Disarmed,
		102: domain.Disarmed,
		103: domain.Armed,
	}, s.inventory.states(1))

	require.Eventually(t, func() bool {
		return len(s.receiver.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.ElementsMatch(t, []string{"Axe,101_disarmed@", "Axe,102_disarmed@"}, s.receiver.snapshot())

	// Evening: the window opens and the building is armed again.
	s.clock.set(19, 0)

	var reevaluated rest.ReevaluateResponse

	s.do(t, http.MethodPost, "/api/buildings/1/reevaluate", nil, &reevaluated)
	require.Equal(t, string(domain.ActionArm), reevaluated.Action)
	require.Equal(t, int64(2), reevaluated.Affected)
	require.Zero(t, reevaluated.Notified)

	// Panel disarmed inside the window raises one "not armed" alert per episode.
	s.do(t, http.MethodPost, "/api/panel_status", map[string]bool{"armed": false}, nil)

	s.do(t, http.MethodPost, "/api/buildings/1/reevaluate", nil, &reevaluated)
	require.Equal(t, string(domain.ActionNotArmed), reevaluated.Action)
	require.Equal(t, 1, reevaluated.Notified)

	s.do(t, http.MethodPost, "/api/buildings/1/reevaluate", nil, &reevaluated)
	require.Zero(t, reevaluated.Notified)

	require.Eventually(t, func() bool {
		return len(s.receiver.snapshot()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	require.Contains(t, s.receiver.snapshot(), "Axe,HQ_101_notarmed@")

	var history []rest.HistoryEntryOut

	s.do(t, http.MethodGet, "/api/buildings/1/history", nil, &history)

	states := make([]string, 0, len(history))
	for _, h := range history {
		states = append(states, h.State)
	}

	require.ElementsMatch(t, []string{"disarmed", "armed", "notarmed"}, states)
}

// TestPassSkipsUnscheduledBuildings runs a full pass through the scheduler loop.
func TestPassSkipsUnscheduledBuildings(t *testing.T) {
	t.Parallel()

	s := newStack(t)

	s.do(t, http.MethodPost, "/api/buildings/2/time", rest.BuildingTimeRequest{
		BuildingID: 2,
		StartTime:  "08:00",
		EndTime:    "12:00",
	}, nil)

	results, err := s.loop.RunPass(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := make(map[int64]domain.Result, len(results))
	for _, r := range results {
		byID[r.BuildingID] = r
	}

	require.Equal(t, domain.SkipNoSchedule, byID[1].Skipped)
	require.Equal(t, domain.ActionArm, byID[2].Action)
	require.Zero(t, byID[2].Affected)
	require.Equal(t, domain.Armed, s.inventory.states(2)[201])

	var buildings []rest.BuildingOut

	s.do(t, http.MethodGet, "/api/buildings", nil, &buildings)
	require.Equal(t, []rest.BuildingOut{
		{ID: 1, Name: "HQ", StartTime: rest.DefaultStartTime, EndTime: rest.DefaultEndTime},
		{ID: 2, Name: "Depot", StartTime: "08:00", EndTime: "12:00"},
	}, buildings)
}
