package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"smartpark/internal/allocation"
	"smartpark/internal/observability"
	"smartpark/internal/parking/events"
	"smartpark/internal/parking/repository"
	"smartpark/internal/parking/validator"
	"smartpark/pkg/config"
	apperrors "smartpark/pkg/errors"
	"smartpark/pkg/logger"
	"smartpark/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockHistoryRepository struct {
	mu       sync.Mutex
	records  []*model.HistoryRecord
	findFunc func(ctx context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, error)
}

func (m *mockHistoryRepository) Archive(_ context.Context, record *model.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *mockHistoryRepository) FindByVehicle(ctx context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, vehicle, limit, offset)
	}
	return nil, nil
}

func (m *mockHistoryRepository) CountByVehicle(_ context.Context, vehicle string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.VehicleNumber == vehicle {
			n++
		}
	}
	return n, nil
}

func (m *mockHistoryRepository) archived() []*model.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.HistoryRecord(nil), m.records...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event events.BookingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Type
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       ParkingService
	clock     *fakeClock
	history   *mockHistoryRepository
	publisher *mockPublisher
	metrics   *observability.ParkingCollector
}

var testStart = time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, size int) *fixture {
	t.Helper()

	clock := &fakeClock{now: testStart}
	cfg := &config.Config{
		Log:                 logger.Discard(),
		Location:            time.UTC,
		DefaultCheckinHours: 6,
		MaxCheckinHours:     24,
	}
	metrics, err := observability.NewParkingCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := allocation.NewEngine(
		allocation.NewPool(size, 10),
		allocation.NewDirectory(),
		allocation.WithPicker(allocation.FirstFree),
		allocation.WithClock(clock.Now),
	)
	f := &fixture{
		clock:     clock,
		history:   &mockHistoryRepository{},
		publisher: &mockPublisher{},
		metrics:   metrics,
	}
	f.svc = NewParkingService(
		engine,
		validator.NewParkingValidator(cfg.Log, cfg.MaxCheckinHours),
		f.history,
		f.publisher,
		metrics,
		cfg,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, f.svc.Close(ctx))
	})
	return f
}

// published waits for queued effects, then returns the event types seen.
func (f *fixture) published() []events.Type {
	f.svc.(*parkingService).effects.wait()
	return f.publisher.types()
}

// archived waits for queued effects, then returns the archived records.
func (f *fixture) archived() []*model.HistoryRecord {
	f.svc.(*parkingService).effects.wait()
	return f.history.archived()
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func preBooking(vehicle, in, out string) *model.PreBookingRequest {
	return &model.PreBookingRequest{
		VehicleNumber: vehicle,
		InDate:        "24-12-25",
		InTime:        in,
		OutDate:       "24-12-25",
		OutTime:       out,
	}
}

func TestCheckIn_DefaultHours(t *testing.T) {
	f := newFixture(t, 10)

	b, err := f.svc.CheckIn(context.Background(), &model.CheckInRequest{VehicleNumber: " ka 01  ab 1234 "})
	require.NoError(t, err)

	assert.Equal(t, "KA 01 AB 1234", b.VehicleNumber)
	assert.Equal(t, "A1", b.Slot)
	assert.Equal(t, model.KindCheckIn, b.Kind)
	assert.True(t, b.StartTime.Equal(testStart))
	assert.True(t, b.EndTime.Equal(testStart.Add(6*time.Hour)))
	assert.NotEmpty(t, b.Reference)
	assert.Equal(t, []events.Type{events.BookingAllocated}, f.published())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AllocationsTotal.WithLabelValues("checkin", observability.OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SlotsOccupied))
}

func TestCheckIn_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  model.CheckInRequest
		code string
	}{
		{"blank vehicle", model.CheckInRequest{VehicleNumber: "   "}, apperrors.CodeInvalidInput},
		{"too many hours", model.CheckInRequest{VehicleNumber: "KA01", Hours: 25}, apperrors.CodeValidation},
		{"bad plate", model.CheckInRequest{VehicleNumber: "KA#01"}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10)
			_, err := f.svc.CheckIn(context.Background(), &tt.req)
			requireCode(t, err, tt.code)
			assert.Empty(t, f.published())
		})
	}
}

func TestCheckIn_AlreadyBooked(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 2})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "ka01", Hours: 2})
	requireCode(t, err, apperrors.CodeAlreadyBooked)
	assert.Equal(t, "A1", apperrors.AsAppError(err).Details["slot"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RejectionsTotal.WithLabelValues("checkin", apperrors.CodeAlreadyBooked)))
}

func TestCheckIn_NoCapacity(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 2})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA02", Hours: 2})
	requireCode(t, err, apperrors.CodeNoCapacity)
}

func TestPreBook_ThenCheckInInsideWindow(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	pre, err := f.svc.PreBook(ctx, preBooking("MH12", "0900", "1100"))
	require.NoError(t, err)
	assert.Equal(t, model.KindPreBooking, pre.Kind)

	f.clock.Advance(90 * time.Minute)
	in, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "MH12", Hours: 1})
	require.NoError(t, err)

	assert.True(t, in.CheckedIn)
	assert.Equal(t, pre.Slot, in.Slot)
	assert.Equal(t, pre.Reference, in.Reference)
	assert.Equal(t, model.KindCheckIn, in.Kind)
	assert.True(t, in.EndTime.Equal(pre.EndTime), "check-in keeps the reserved interval")
	assert.Equal(t, []events.Type{events.BookingAllocated, events.BookingCheckedIn}, f.published())
}

func TestPreBook_CheckInOutsideWindow(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.PreBook(ctx, preBooking("MH12", "1000", "1100"))
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "MH12", Hours: 1})
	requireCode(t, err, apperrors.CodeOutsideWindow)
}

func TestPreBook_BestFit(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	first, err := f.svc.PreBook(ctx, preBooking("AA11", "1000", "1200"))
	require.NoError(t, err)
	assert.False(t, first.BestFit)

	second, err := f.svc.PreBook(ctx, preBooking("BB22", "1230", "1400"))
	require.NoError(t, err)
	assert.True(t, second.BestFit)
	assert.Equal(t, first.Slot, second.Slot)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AllocationsTotal.WithLabelValues("prebooking", observability.OutcomeBestFit)))

	third, err := f.svc.PreBook(ctx, preBooking("CC33", "1410", "1500"))
	require.NoError(t, err)
	assert.False(t, third.BestFit, "a ten minute gap is below the threshold")
	assert.NotEqual(t, first.Slot, third.Slot)
}

func TestPreBook_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  *model.PreBookingRequest
		code string
	}{
		{"out before in", preBooking("KA01", "1200", "1000"), apperrors.CodeInvalidInterval},
		{"zero length", preBooking("KA01", "1200", "1200"), apperrors.CodeInvalidInterval},
		{"already ended", preBooking("KA01", "0500", "0700"), apperrors.CodeInvalidInterval},
		{"bad clock", preBooking("KA01", "2460", "2500"), apperrors.CodeValidation},
		{"bad date", &model.PreBookingRequest{VehicleNumber: "KA01", InDate: "2025-12-24", InTime: "1000", OutDate: "24-12-25", OutTime: "1100"}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10)
			_, err := f.svc.PreBook(context.Background(), tt.req)
			requireCode(t, err, tt.code)
		})
	}
}

func TestCheckOut(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	booked, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 2})
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	out, err := f.svc.CheckOut(ctx, " ka01 ")
	require.NoError(t, err)
	assert.Equal(t, "A1", out.Slot)
	assert.Equal(t, "KA01", out.VehicleNumber)

	records := f.archived()
	require.Len(t, records, 1)
	assert.Equal(t, model.OutcomeCheckedOut, records[0].Outcome)
	assert.Equal(t, booked.Reference, records[0].Reference)
	assert.Equal(t, []events.Type{events.BookingAllocated, events.BookingReleased}, f.published())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.SlotsOccupied))

	_, err = f.svc.GetBooking(ctx, "KA01")
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.CheckOut(ctx, "KA01")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestSweep_ReleasesExpiredOnce(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA02", Hours: 3})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	n, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a booking ending exactly now is expired")

	n, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	records := f.archived()
	require.Len(t, records, 1)
	assert.Equal(t, "KA01", records[0].VehicleNumber)
	assert.Equal(t, model.OutcomeExpired, records[0].Outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReleasesTotal.WithLabelValues(observability.ReleaseExpired)))

	again, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err, "an expired vehicle may check in again")
	assert.NotEmpty(t, again.Reference)
}

func TestSweep_CancelledContext(t *testing.T) {
	f := newFixture(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListSlots(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err)
	_, err = f.svc.PreBook(ctx, preBooking("KA02", "0830", "1000"))
	require.NoError(t, err)

	grid, err := f.svc.ListSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, grid.Total)
	assert.Equal(t, 2, grid.Occupied, "future pre-bookings hold their slot")
	assert.Equal(t, 18, grid.Available)
	assert.Equal(t, "A1", grid.Slots[0].ID)
	assert.Equal(t, "B10", grid.Slots[19].ID)
	require.NotNil(t, grid.Slots[0].Current)
	assert.Nil(t, grid.Slots[1].Current)
	require.Len(t, grid.Slots[1].Upcoming, 1)

	f.clock.Advance(90 * time.Minute)
	grid, err = f.svc.ListSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Occupied, "listing sweeps first")
	assert.Len(t, f.archived(), 1)
}

func TestGetSlot(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err)

	slot, err := f.svc.GetSlot(ctx, " a1 ")
	require.NoError(t, err)
	assert.Equal(t, "A1", slot.ID)
	assert.Equal(t, model.SlotOccupied, slot.Status)
	require.NotNil(t, slot.Current)
	assert.Equal(t, "KA01", slot.Current.VehicleNumber)

	_, err = f.svc.GetSlot(ctx, "Z9")
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.GetSlot(ctx, "  ")
	requireCode(t, err, apperrors.CodeInvalidInput)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, 10)
	var gotLimit int
	f.history.findFunc = func(_ context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, error) {
		gotLimit = limit
		return []*model.HistoryRecord{{VehicleNumber: vehicle, Outcome: model.OutcomeExpired}}, nil
	}
	_ = f.history.Archive(context.Background(), &model.HistoryRecord{VehicleNumber: "KA01"})

	records, total, err := f.svc.History(context.Background(), "ka01", 0, -5)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 10, gotLimit)
}

func TestHistory_Disabled(t *testing.T) {
	f := newFixture(t, 10)
	svc := f.svc.(*parkingService)
	svc.history = repository.NewNopHistoryRepository()

	_, _, err := f.svc.History(context.Background(), "KA01", 10, 0)
	requireCode(t, err, apperrors.CodeUnavailable)
}

func TestPublishFailureKeepsBooking(t *testing.T) {
	f := newFixture(t, 10)
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err)

	b, err := f.svc.GetBooking(ctx, "KA01")
	require.NoError(t, err)
	assert.Equal(t, "A1", b.Slot)
}

func TestConcurrentCheckInsGetDistinctSlots(t *testing.T) {
	const n = 50
	f := newFixture(t, n)

	var wg sync.WaitGroup
	slots := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := f.svc.CheckIn(context.Background(), &model.CheckInRequest{
				VehicleNumber: fmt.Sprintf("KA%02d", i),
				Hours:         2,
			})
			errs[i] = err
			if err == nil {
				slots[i] = b.Slot
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range n {
		require.NoError(t, errs[i])
		assert.False(t, seen[slots[i]], "slot %s assigned twice", slots[i])
		seen[slots[i]] = true
	}

	_, err := f.svc.CheckIn(context.Background(), &model.CheckInRequest{VehicleNumber: "LATE1", Hours: 2})
	requireCode(t, err, apperrors.CodeNoCapacity)
}

// blockingPublisher holds every Publish until its context ends and records why it ended.
type blockingPublisher struct {
	mu     sync.Mutex
	causes []error
}

func (p *blockingPublisher) Publish(ctx context.Context, _ events.BookingEvent) error {
	<-ctx.Done()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.causes = append(p.causes, ctx.Err())
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }

func (p *blockingPublisher) ended() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.causes...)
}

func TestCheckIn_SlowPublisherDoesNotHoldTheCaller(t *testing.T) {
	clock := &fakeClock{now: testStart}
	cfg := &config.Config{
		Log:                 logger.Discard(),
		Location:            time.UTC,
		DefaultCheckinHours: 6,
		MaxCheckinHours:     24,
		EffectTimeout:       200 * time.Millisecond,
	}
	engine := allocation.NewEngine(
		allocation.NewPool(10, 10),
		allocation.NewDirectory(),
		allocation.WithPicker(allocation.FirstFree),
		allocation.WithClock(clock.Now),
	)
	history := &mockHistoryRepository{}
	publisher := &blockingPublisher{}
	svc := NewParkingService(engine, validator.NewParkingValidator(cfg.Log, cfg.MaxCheckinHours), history, publisher, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	began := time.Now()
	b, err := svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err)
	assert.Less(t, time.Since(began), 100*time.Millisecond, "check-in waited on the publisher")
	assert.Equal(t, "A1", b.Slot)

	_, err = svc.CheckOut(ctx, "KA01")
	require.NoError(t, err)
	cancel()

	closeCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, svc.Close(closeCtx))

	assert.Equal(t, []error{context.DeadlineExceeded, context.DeadlineExceeded}, publisher.ended(),
		"each publish gets its own deadline, unaffected by the caller's cancellation")
	records := history.archived()
	require.Len(t, records, 1, "the archive still runs after the caller has gone")
	assert.Equal(t, model.OutcomeCheckedOut, records[0].Outcome)
}

func TestEffects_KeepCommitOrderPerVehicle(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vehicle := fmt.Sprintf("KA%02d", i)
			if _, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: vehicle, Hours: 1}); err != nil {
				t.Error(err)
				return
			}
			if _, err := f.svc.CheckOut(ctx, vehicle); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	f.published()
	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	require.Len(t, f.publisher.events, 20)
	allocated := make(map[string]bool)
	for _, e := range f.publisher.events {
		switch e.Type {
		case events.BookingAllocated:
			allocated[e.VehicleNumber] = true
		case events.BookingReleased:
			assert.True(t, allocated[e.VehicleNumber], "%s released before it was allocated", e.VehicleNumber)
		}
	}
}

func TestClose_RefusesLaterEffects(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.svc.Close(ctx))

	b, err := f.svc.CheckIn(ctx, &model.CheckInRequest{VehicleNumber: "KA01", Hours: 1})
	require.NoError(t, err, "the engine still serves after effects stop")
	assert.Equal(t, "A1", b.Slot)
	assert.Empty(t, f.published())
}
