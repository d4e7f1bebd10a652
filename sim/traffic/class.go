package traffic

import (
	"fmt"
	"math/rand/v2"
)

// Descriptor is the persisted identity of a traffic class: everything needed to
// rebuild it with a unit service intensity.
type Descriptor struct {
	A           float64    `json:"a" yaml:"a"`
	ArrivalType StreamType `json:"arrival_stream_type" yaml:"arrival_stream_type"`
	ArrivalE2D2 float64    `json:"arrival_e2d2" yaml:"arrival_e2d2"`
	ServiceType StreamType `json:"service_stream_type" yaml:"service_stream_type"`
	ServiceE2D2 float64    `json:"service_e2d2" yaml:"service_e2d2"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("a=%.4f %s(E²/D²=%g)/%s(E²/D²=%g)", d.A, d.ArrivalType, d.ArrivalE2D2, d.ServiceType, d.ServiceE2D2)
}

// TrafficClass is one experiment cell's immutable arrival/service description.
// It is constructed once per cell and shared read-only by every series and
// worker; sampling takes the caller's random source.
type TrafficClass struct {
	arrival     Stream
	service     Stream
	arrivalE2D2 float64
	serviceE2D2 float64
	a           float64
}

// NewClass fits both streams. The offered load is a = arrivalIntensity /
// serviceIntensity. Either fit failing makes the class infeasible; the
// returned error wraps ErrInfeasible in that case.
func NewClass(arrivalType, serviceType StreamType,
	arrivalIntensity, arrivalE2D2 float64,
	serviceIntensity, serviceE2D2 float64) (*TrafficClass, error) {
	arrival, err := FitStream(arrivalType, arrivalIntensity, arrivalE2D2)
	if err != nil {
		return nil, fmt.Errorf("arrival stream: %w", err)
	}
	service, err := FitStream(serviceType, serviceIntensity, serviceE2D2)
	if err != nil {
		return nil, fmt.Errorf("service stream: %w", err)
	}
	return &TrafficClass{
		arrival:     arrival,
		service:     service,
		arrivalE2D2: arrivalE2D2,
		serviceE2D2: serviceE2D2,
		a:           arrivalIntensity / serviceIntensity,
	}, nil
}

// FromDescriptor rebuilds the class a Descriptor names, with service intensity 1.
func FromDescriptor(d Descriptor) (*TrafficClass, error) {
	return NewClass(d.ArrivalType, d.ServiceType, d.A, d.ArrivalE2D2, 1, d.ServiceE2D2)
}

// A returns the offered load.
func (c *TrafficClass) A() float64 { return c.a }

func (c *TrafficClass) Arrival() Stream { return c.arrival }
func (c *TrafficClass) Service() Stream { return c.service }

func (c *TrafficClass) ArrivalE2D2() float64 { return c.arrivalE2D2 }
func (c *TrafficClass) ServiceE2D2() float64 { return c.serviceE2D2 }

// Descriptor returns the class identity used for persistence and reporting.
func (c *TrafficClass) Descriptor() Descriptor {
	return Descriptor{
		A:           c.a,
		ArrivalType: c.arrival.Type,
		ArrivalE2D2: c.arrivalE2D2,
		ServiceType: c.service.Type,
		ServiceE2D2: c.serviceE2D2,
	}
}

// NextArrivalInterval samples the time until the next call attempt.
func (c *TrafficClass) NextArrivalInterval(src rand.Source) float64 {
	return c.arrival.Sample(src)
}

// NextServiceDuration samples the holding time of an admitted call.
func (c *TrafficClass) NextServiceDuration(src rand.Source) float64 {
	return c.service.Sample(src)
}
