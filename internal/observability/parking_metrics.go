package observability

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeBestFit   = "best_fit"
	OutcomeFallback  = "fallback"
	OutcomeCheckedIn = "checked_in"

	ReleaseCheckedOut = "checked_out"
	ReleaseExpired    = "expired"
)

// ParkingCollector exposes allocation and occupancy metrics.
type ParkingCollector struct {
	gatherer prometheus.Gatherer

	AllocationsTotal *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	ReleasesTotal    *prometheus.CounterVec
	SlotsOccupied    prometheus.Gauge
	SlotsTotal       prometheus.Gauge
	BestFitGap       prometheus.Histogram
	SweepDuration    prometheus.Histogram
}

// NewParkingCollector registers parking metrics against reg, or the default
// registerer when reg is nil. Registering twice returns the existing collectors.
func NewParkingCollector(reg prometheus.Registerer) (*ParkingCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	allocations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_allocations_total",
		Help: "Successful slot allocations by booking kind and how the slot was chosen.",
	}, []string{"kind", "outcome"}), "parking_allocations_total")
	if err != nil {
		return nil, err
	}

	rejections, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_rejections_total",
		Help: "Allocation requests that were refused, by error code.",
	}, []string{"kind", "reason"}), "parking_rejections_total")
	if err != nil {
		return nil, err
	}

	releases, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_releases_total",
		Help: "Bookings released, by reason.",
	}, []string{"reason"}), "parking_releases_total")
	if err != nil {
		return nil, err
	}

	occupied, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_slots_occupied",
		Help: "Slots holding an interval that has not ended yet.",
	}), "parking_slots_occupied")
	if err != nil {
		return nil, err
	}

	total, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_slots_total",
		Help: "Size of the slot pool.",
	}), "parking_slots_total")
	if err != nil {
		return nil, err
	}

	gap, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_best_fit_gap_seconds",
		Help:    "Neighbour gap left by best-fit placements.",
		Buckets: []float64{1800, 3600, 2 * 3600, 4 * 3600, 8 * 3600, 24 * 3600, 72 * 3600},
	}), "parking_best_fit_gap_seconds")
	if err != nil {
		return nil, err
	}

	sweep, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_sweep_duration_seconds",
		Help:    "Duration of expiry sweeps.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "parking_sweep_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &ParkingCollector{
		gatherer:         gatherer,
		AllocationsTotal: allocations,
		RejectionsTotal:  rejections,
		ReleasesTotal:    releases,
		SlotsOccupied:    occupied,
		SlotsTotal:       total,
		BestFitGap:       gap,
		SweepDuration:    sweep,
	}, nil
}

func (c *ParkingCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

func (c *ParkingCollector) ObserveAllocation(kind, outcome string) {
	if c == nil {
		return
	}
	c.AllocationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (c *ParkingCollector) ObserveRejection(kind, reason string) {
	if c == nil {
		return
	}
	c.RejectionsTotal.WithLabelValues(kind, reason).Inc()
}

func (c *ParkingCollector) ObserveRelease(reason string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ReleasesTotal.WithLabelValues(reason).Add(float64(n))
}

func (c *ParkingCollector) ObserveBestFitGap(d time.Duration) {
	if c == nil {
		return
	}
	c.BestFitGap.Observe(d.Seconds())
}

func (c *ParkingCollector) ObserveSweep(d time.Duration) {
	if c == nil {
		return
	}
	c.SweepDuration.Observe(d.Seconds())
}

// SetOccupancy updates both slot gauges.
func (c *ParkingCollector) SetOccupancy(occupied, total int) {
	if c == nil {
		return
	}
	c.SlotsOccupied.Set(float64(occupied))
	c.SlotsTotal.Set(float64(total))
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return collector, nil
}
