package service

import (
	"context"
	"errors"
	"smartpark/internal/allocation"
	"smartpark/internal/observability"
	parkingerrors "smartpark/internal/parking/errors"
	"smartpark/internal/parking/events"
	"smartpark/internal/parking/repository"
	"smartpark/internal/parking/validator"
	"smartpark/pkg/config"
	apperrors "smartpark/pkg/errors"
	"smartpark/pkg/logger"
	"smartpark/pkg/model"
	"smartpark/pkg/sanitizer"
	"smartpark/pkg/timeparse"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ParkingService interface {
	CheckIn(ctx context.Context, req *model.CheckInRequest) (*model.Booking, error)
	PreBook(ctx context.Context, req *model.PreBookingRequest) (*model.Booking, error)
	CheckOut(ctx context.Context, vehicle string) (*model.CheckOut, error)
	GetBooking(ctx context.Context, vehicle string) (*model.Booking, error)

	ListSlots(ctx context.Context) (*model.Grid, error)
	GetSlot(ctx context.Context, id string) (*model.Slot, error)

	// Sweep releases every booking that has ended and returns how many were released.
	Sweep(ctx context.Context) (int, error)
	History(ctx context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, int64, error)

	// Close drains archive and publish work still queued.
	Close(ctx context.Context) error
}

// parkingService owns the allocation engine. Every engine call, reads included,
// happens under mu. History and events are queued under mu, so they leave in
// commit order, and a single worker carries them out after the caller returns.
type parkingService struct {
	mu     sync.Mutex
	engine *allocation.Engine
	refs   map[string]string

	validator *validator.ParkingValidator
	history   repository.HistoryRepository
	publisher events.Publisher
	metrics   *observability.ParkingCollector
	cfg       *config.Config
	log       *logger.Logger
	newRef    func() string

	effects       *effectQueue
	effectTimeout time.Duration
}

func NewParkingService(
	engine *allocation.Engine,
	validator *validator.ParkingValidator,
	history repository.HistoryRepository,
	publisher events.Publisher,
	metrics *observability.ParkingCollector,
	cfg *config.Config,
) ParkingService {
	if history == nil {
		history = repository.NewNopHistoryRepository()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	effectTimeout := cfg.EffectTimeout
	if effectTimeout <= 0 {
		effectTimeout = config.DefaultEffectTimeout
	}
	queueSize := cfg.EffectQueueSize
	if queueSize <= 0 {
		queueSize = config.DefaultEffectQueueSize
	}
	s := &parkingService{
		engine:    engine,
		refs:      make(map[string]string),
		validator: validator,
		history:   history,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		log:       cfg.Log.Component("parking"),
		newRef:    uuid.NewString,

		effectTimeout: effectTimeout,
	}
	s.effects = newEffectQueue(queueSize, s.apply)
	s.mu.Lock()
	s.updateOccupancyLocked(engine.Now())
	s.mu.Unlock()
	return s
}

// effect is a side effect of an engine change, carried out once mu is released.
type effect struct {
	event  events.BookingEvent
	record *model.HistoryRecord
}

func (s *parkingService) CheckIn(ctx context.Context, req *model.CheckInRequest) (*model.Booking, error) {
	req.VehicleNumber = sanitizer.SanitizeVehicleNumber(req.VehicleNumber)
	if req.VehicleNumber == "" {
		return nil, parkingerrors.ToAppError(parkingerrors.ErrInvalidVehicleNumber, parkingerrors.Subject{})
	}
	if err := s.validate(s.validator.ValidateCheckIn(req), "Check-in validation failed", req.VehicleNumber); err != nil {
		return nil, err
	}

	hours := req.Hours
	if hours == 0 {
		hours = s.cfg.DefaultCheckinHours
	}

	s.mu.Lock()
	now := s.engine.Now()
	effects := s.sweepLocked(now)
	placement, err := s.engine.Request(req.VehicleNumber, now, now.Add(time.Duration(hours)*time.Hour), allocation.KindCheckIn)
	booking, effects := s.afterRequestLocked(req.VehicleNumber, allocation.KindCheckIn, placement, err, now, effects)
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()

	if err != nil {
		return nil, s.requestError(err, req.VehicleNumber)
	}

	s.log.Info("Vehicle checked in",
		"vehicle", booking.VehicleNumber,
		"slot", booking.Slot,
		"reference", booking.Reference,
		"from_prebooking", booking.CheckedIn,
		"until", booking.EndTime,
	)
	return booking, nil
}

func (s *parkingService) PreBook(ctx context.Context, req *model.PreBookingRequest) (*model.Booking, error) {
	req.VehicleNumber = sanitizer.SanitizeVehicleNumber(req.VehicleNumber)
	if req.VehicleNumber == "" {
		return nil, parkingerrors.ToAppError(parkingerrors.ErrInvalidVehicleNumber, parkingerrors.Subject{})
	}
	if err := s.validate(s.validator.ValidatePreBooking(req), "Pre-booking validation failed", req.VehicleNumber); err != nil {
		return nil, err
	}

	start, err := timeparse.Parse(req.InDate, req.InTime, s.cfg.Location)
	if err != nil {
		return nil, parkingerrors.ToAppError(err, parkingerrors.Subject{Vehicle: req.VehicleNumber})
	}
	end, err := timeparse.Parse(req.OutDate, req.OutTime, s.cfg.Location)
	if err != nil {
		return nil, parkingerrors.ToAppError(err, parkingerrors.Subject{Vehicle: req.VehicleNumber})
	}
	if !start.Before(end) {
		return nil, apperrors.InvalidInterval("Out time must be after in time")
	}

	s.mu.Lock()
	now := s.engine.Now()
	if !end.After(now) {
		s.mu.Unlock()
		return nil, apperrors.InvalidInterval("Pre-booking must end in the future")
	}
	effects := s.sweepLocked(now)
	placement, err := s.engine.Request(req.VehicleNumber, start, end, allocation.KindPreBooking)
	booking, effects := s.afterRequestLocked(req.VehicleNumber, allocation.KindPreBooking, placement, err, now, effects)
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()

	if err != nil {
		return nil, s.requestError(err, req.VehicleNumber)
	}

	s.log.Info("Slot pre-booked",
		"vehicle", booking.VehicleNumber,
		"slot", booking.Slot,
		"reference", booking.Reference,
		"best_fit", booking.BestFit,
		"from", booking.StartTime,
		"until", booking.EndTime,
	)
	return booking, nil
}

// afterRequestLocked records the outcome of an engine Request: metrics on both
// paths, and on success the booking reference and its event.
func (s *parkingService) afterRequestLocked(
	vehicle string,
	kind allocation.Kind,
	placement allocation.Placement,
	err error,
	now time.Time,
	effects []effect,
) (*model.Booking, []effect) {
	if err != nil {
		reason := apperrors.AsAppError(parkingerrors.ToAppError(err, parkingerrors.Subject{Vehicle: vehicle})).Code
		s.metrics.ObserveRejection(string(kind), reason)
		return nil, effects
	}

	b := placement.Booking
	eventType := events.BookingAllocated
	outcome := observability.OutcomeFallback
	switch {
	case placement.CheckedIn:
		eventType = events.BookingCheckedIn
		outcome = observability.OutcomeCheckedIn
	case placement.BestFit:
		outcome = observability.OutcomeBestFit
		s.metrics.ObserveBestFitGap(placement.Gap)
	}
	if _, ok := s.refs[vehicle]; !ok {
		s.refs[vehicle] = s.newRef()
	}
	s.metrics.ObserveAllocation(string(kind), outcome)
	s.updateOccupancyLocked(now)

	booking := toBooking(b, s.refs[vehicle])
	booking.BestFit = placement.BestFit
	booking.CheckedIn = placement.CheckedIn

	event := s.event(eventType, b, booking.Reference, now)
	event.BestFit = placement.BestFit
	return booking, append(effects, effect{event: event})
}

func (s *parkingService) requestError(err error, vehicle string) error {
	subject := parkingerrors.Subject{Vehicle: vehicle}
	if errors.Is(err, allocation.ErrAlreadyBooked) {
		s.mu.Lock()
		if existing, ok := s.engine.ActiveBooking(vehicle); ok {
			subject.Slot = existing.SlotID
		}
		s.mu.Unlock()
	}
	appErr := parkingerrors.ToAppError(err, subject)
	s.log.Warn("Allocation request refused", "vehicle", vehicle, "error", appErr)
	return appErr
}

func (s *parkingService) CheckOut(ctx context.Context, vehicle string) (*model.CheckOut, error) {
	vehicle = sanitizer.SanitizeVehicleNumber(vehicle)
	if vehicle == "" {
		return nil, parkingerrors.ToAppError(parkingerrors.ErrInvalidVehicleNumber, parkingerrors.Subject{})
	}

	s.mu.Lock()
	now := s.engine.Now()
	effects := s.sweepLocked(now)
	b, ok := s.engine.ActiveBooking(vehicle)
	if !ok {
		s.dispatchLocked(ctx, effects)
		s.mu.Unlock()
		return nil, parkingerrors.ToAppError(allocation.ErrNotFound, parkingerrors.Subject{Vehicle: vehicle})
	}
	slot, err := s.engine.Release(vehicle)
	if err != nil {
		s.dispatchLocked(ctx, effects)
		s.mu.Unlock()
		return nil, parkingerrors.ToAppError(err, parkingerrors.Subject{Vehicle: vehicle})
	}
	effects = append(effects, s.closeLocked(b, events.BookingReleased, model.OutcomeCheckedOut, now))
	s.metrics.ObserveRelease(observability.ReleaseCheckedOut, 1)
	s.updateOccupancyLocked(now)
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()

	s.log.Info("Vehicle checked out", "vehicle", vehicle, "slot", slot)
	return &model.CheckOut{VehicleNumber: vehicle, Slot: slot, ReleasedAt: now}, nil
}

func (s *parkingService) GetBooking(ctx context.Context, vehicle string) (*model.Booking, error) {
	vehicle = sanitizer.SanitizeVehicleNumber(vehicle)
	if vehicle == "" {
		return nil, parkingerrors.ToAppError(parkingerrors.ErrInvalidVehicleNumber, parkingerrors.Subject{})
	}

	s.mu.Lock()
	effects := s.sweepLocked(s.engine.Now())
	b, ok := s.engine.ActiveBooking(vehicle)
	ref := s.refs[vehicle]
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()

	if !ok {
		return nil, parkingerrors.ToAppError(allocation.ErrNotFound, parkingerrors.Subject{Vehicle: vehicle})
	}
	return toBooking(b, ref), nil
}

func (s *parkingService) ListSlots(ctx context.Context) (*model.Grid, error) {
	s.mu.Lock()
	now := s.engine.Now()
	effects := s.sweepLocked(now)
	views := s.engine.Snapshot()
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()

	grid := &model.Grid{
		Total: len(views),
		AsOf:  now,
		Slots: make([]model.Slot, 0, len(views)),
	}
	for _, v := range views {
		slot := toSlot(v, now)
		if slot.Status == model.SlotOccupied {
			grid.Occupied++
		}
		grid.Slots = append(grid.Slots, slot)
	}
	grid.Available = grid.Total - grid.Occupied
	return grid, nil
}

func (s *parkingService) GetSlot(ctx context.Context, id string) (*model.Slot, error) {
	id = sanitizer.SanitizeSlotID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	s.mu.Lock()
	now := s.engine.Now()
	effects := s.sweepLocked(now)
	view, err := s.engine.Slot(id)
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()

	if err != nil {
		return nil, parkingerrors.ToAppError(err, parkingerrors.Subject{Slot: id})
	}
	slot := toSlot(view, now)
	return &slot, nil
}

func (s *parkingService) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	s.mu.Lock()
	effects := s.sweepLocked(s.engine.Now())
	s.dispatchLocked(ctx, effects)
	s.mu.Unlock()
	s.metrics.ObserveSweep(time.Since(start))

	if len(effects) > 0 {
		s.log.Info("Expired bookings released", "count", len(effects))
	}
	return len(effects), nil
}

func (s *parkingService) History(ctx context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, int64, error) {
	vehicle = sanitizer.SanitizeVehicleNumber(vehicle)
	if vehicle == "" {
		return nil, 0, parkingerrors.ToAppError(parkingerrors.ErrInvalidVehicleNumber, parkingerrors.Subject{})
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	records, err := s.history.FindByVehicle(ctx, vehicle, limit, offset)
	if err != nil {
		return nil, 0, s.historyError(err, vehicle)
	}
	count, err := s.history.CountByVehicle(ctx, vehicle)
	if err != nil {
		return nil, 0, s.historyError(err, vehicle)
	}
	return records, count, nil
}

func (s *parkingService) historyError(err error, vehicle string) error {
	if !errors.Is(err, repository.ErrHistoryDisabled) {
		s.log.Error("Failed to read booking history", "vehicle", vehicle, "error", err)
	}
	return parkingerrors.ToAppError(err, parkingerrors.Subject{Vehicle: vehicle})
}

// sweepLocked releases ended bookings and returns their effects.
func (s *parkingService) sweepLocked(now time.Time) []effect {
	expired := s.engine.SweepExpired(now)
	if len(expired) == 0 {
		return nil
	}
	effects := make([]effect, 0, len(expired))
	for _, b := range expired {
		effects = append(effects, s.closeLocked(b, events.BookingExpired, model.OutcomeExpired, now))
	}
	s.metrics.ObserveRelease(observability.ReleaseExpired, len(expired))
	s.updateOccupancyLocked(now)
	return effects
}

// closeLocked forgets the booking reference and builds the archive effect.
func (s *parkingService) closeLocked(b allocation.Booking, eventType events.Type, outcome string, now time.Time) effect {
	ref := s.refs[b.Occupant]
	delete(s.refs, b.Occupant)
	return effect{
		event: s.event(eventType, b, ref, now),
		record: &model.HistoryRecord{
			Reference:     ref,
			VehicleNumber: b.Occupant,
			Slot:          b.SlotID,
			Kind:          string(b.Kind),
			StartTime:     b.Interval.Start,
			EndTime:       b.Interval.End,
			Outcome:       outcome,
			ClosedAt:      now,
		},
	}
}

func (s *parkingService) updateOccupancyLocked(now time.Time) {
	if s.metrics == nil {
		return
	}
	views := s.engine.Snapshot()
	occupied := 0
	for _, v := range views {
		if v.Status == allocation.StatusOccupied {
			occupied++
		}
	}
	s.metrics.SetOccupancy(occupied, len(views))
}

func (s *parkingService) event(t events.Type, b allocation.Booking, ref string, now time.Time) events.BookingEvent {
	return events.BookingEvent{
		Type:          t,
		Reference:     ref,
		VehicleNumber: b.Occupant,
		Slot:          b.SlotID,
		Kind:          string(b.Kind),
		StartTime:     b.Interval.Start,
		EndTime:       b.Interval.End,
		OccurredAt:    now,
	}
}

// dispatchLocked queues effects in commit order. It never blocks on
// storage or the broker.
func (s *parkingService) dispatchLocked(ctx context.Context, effects []effect) {
	if len(effects) == 0 {
		return
	}
	if !s.effects.push(effectBatch{ctx: context.WithoutCancel(ctx), effects: effects}) {
		for _, e := range effects {
			s.log.Error("Dropped booking side effect",
				"event_type", e.event.Type,
				"vehicle", e.event.VehicleNumber,
				"reason", "effect queue full or closed",
			)
		}
	}
}

// apply archives and publishes one effect, each step under its own deadline.
// Failures are logged only: the engine has already committed and stays the
// source of truth.
func (s *parkingService) apply(base context.Context, e effect) {
	if e.record != nil {
		ctx, cancel := context.WithTimeout(base, s.effectTimeout)
		if err := s.history.Archive(ctx, e.record); err != nil {
			s.log.Error("Failed to archive booking",
				"vehicle", e.record.VehicleNumber,
				"reference", e.record.Reference,
				"error", err,
			)
		}
		cancel()
	}

	ctx, cancel := context.WithTimeout(base, s.effectTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, e.event); err != nil {
		s.log.Error("Failed to publish booking event",
			"event_type", e.event.Type,
			"vehicle", e.event.VehicleNumber,
			"error", err,
		)
	}
}

// Close stops accepting effects and waits for the queued ones to finish.
func (s *parkingService) Close(ctx context.Context) error {
	return s.effects.close(ctx)
}

func (s *parkingService) validate(err error, message, vehicle string) error {
	if err == nil {
		return nil
	}
	s.log.Warn(message, "vehicle", vehicle, "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func toBooking(b allocation.Booking, ref string) *model.Booking {
	return &model.Booking{
		Reference:     ref,
		VehicleNumber: b.Occupant,
		Slot:          b.SlotID,
		Kind:          string(b.Kind),
		StartTime:     b.Interval.Start,
		EndTime:       b.Interval.End,
	}
}

func toSlot(v allocation.SlotView, now time.Time) model.Slot {
	slot := model.Slot{
		ID:     v.ID,
		Status: string(v.Status),
	}
	if v.Current != nil {
		slot.Current = toInterval(*v.Current)
	}
	for _, iv := range v.Intervals {
		if iv.Start.After(now) {
			slot.Upcoming = append(slot.Upcoming, *toInterval(iv))
		}
	}
	return slot
}

func toInterval(iv allocation.Interval) *model.Interval {
	return &model.Interval{
		VehicleNumber: iv.Occupant,
		StartTime:     iv.Start,
		EndTime:       iv.End,
	}
}
