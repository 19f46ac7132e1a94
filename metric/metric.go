package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/synth/signal"
)

const componentsLabel = "synth.components"

const (
	// CycleCounter measures number of processed cycles.
	CycleCounter = "Cycles"
	// FrameCounter measures number of produced frames.
	FrameCounter = "Frames"
	// LatencyCounter measures latency between processing calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// CommandCounter counts applied commands.
	CommandCounter = "Commands"
	// OverflowCounter counts input overflows reported by stream.
	OverflowCounter = "InputOverflows"
	// UnderflowCounter counts output underflows reported by stream.
	UnderflowCounter = "OutputUnderflows"
	// ComponentCounter counts number of metered components.
	ComponentCounter = "Components"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		CycleCounter,
		FrameCounter,
		LatencyCounter,
		DurationCounter,
		CommandCounter,
		OverflowCounter,
		UnderflowCounter,
		ComponentCounter,
	}
)

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for component := range components.m {
		m[component] = getCounters(component)
	}
	return m
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(componentType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// Meter captures counters of a single running component. The zero
// value and nil pointer are valid and measure nothing. Meter methods
// never block, they are safe to call from the audio thread.
type Meter struct {
	metric
	sampleRate     int
	calledAt       time.Time
	frames         int64
	bufferDuration time.Duration
}

// New creates new meter to capture component counters. All meters of
// the same component type share counters.
func New(component interface{}, sampleRate int) *Meter {
	t := getType(component)
	metric := components.get(t)
	metric.components.Add(1)
	return &Meter{
		metric:     metric,
		sampleRate: sampleRate,
		calledAt:   time.Now(),
	}
}

// Cycle captures metrics when buffer of frames is processed.
func (m *Meter) Cycle(frames int64) {
	if m == nil || m.cycles == nil {
		return
	}
	m.latency.set(time.Since(m.calledAt))
	m.cycles.Add(1)
	m.framesTotal.Add(frames)
	// recalculate buffer duration only when buffer size has changed
	if m.frames != frames {
		m.frames = frames
		m.bufferDuration = signal.DurationOf(m.sampleRate, frames)
	}
	m.duration.add(m.bufferDuration)
	m.calledAt = time.Now()
}

// Commands captures number of applied commands.
func (m *Meter) Commands(n int) {
	if m == nil || m.commands == nil || n == 0 {
		return
	}
	m.commands.Add(int64(n))
}

// InputOverflow captures an input overflow.
func (m *Meter) InputOverflow() {
	if m == nil || m.overflows == nil {
		return
	}
	m.overflows.Add(1)
}

// OutputUnderflow captures an output underflow.
func (m *Meter) OutputUnderflow() {
	if m == nil || m.underflows == nil {
		return
	}
	m.underflows.Add(1)
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(componentType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[componentType]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	components  *expvar.Int
	cycles      *expvar.Int
	framesTotal *expvar.Int
	commands    *expvar.Int
	overflows   *expvar.Int
	underflows  *expvar.Int
	latency     *duration
	duration    *duration
}

func newMetric(componentType string) metric {
	m := metric{
		components:  expvar.NewInt(key(componentType, ComponentCounter)),
		cycles:      expvar.NewInt(key(componentType, CycleCounter)),
		framesTotal: expvar.NewInt(key(componentType, FrameCounter)),
		commands:    expvar.NewInt(key(componentType, CommandCounter)),
		overflows:   expvar.NewInt(key(componentType, OverflowCounter)),
		underflows:  expvar.NewInt(key(componentType, UnderflowCounter)),
		latency:     &duration{},
		duration:    &duration{},
	}
	expvar.Publish(key(componentType, LatencyCounter), m.latency)
	expvar.Publish(key(componentType, DurationCounter), m.duration)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, componentType, counter)
}

func getType(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
