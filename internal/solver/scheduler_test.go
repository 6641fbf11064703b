package solver_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/solver"
)

// fakeOp applies f to the neutronic power and records the times and
// sub-steps it was called with.
type fakeOp struct {
	name  string
	dtMax func(plant.SimulationState) float64
	f     func(p, dt float64) float64
	err   error

	times []float64
	dts   []float64
}

func (o *fakeOp) Name() string { return o.name }

func (o *fakeOp) Apply(s plant.SimulationState, dt float64) (plant.SimulationState, error) {
	if o.err != nil {
		return s, o.err
	}
	o.times = append(o.times, s.Time)
	o.dts = append(o.dts, dt)
	next := s.Clone()
	next.Neutronics.Power = o.f(s.Neutronics.Power, dt)
	return next, nil
}

func (o *fakeOp) MaxStableDt(s plant.SimulationState) float64 {
	if o.dtMax == nil {
		return math.Inf(1)
	}
	return o.dtMax(s)
}

func (o *fakeOp) SubcycleCount(s plant.SimulationState, dt float64) int {
	return solver.SubcycleCount(dt, o.MaxStableDt(s))
}

func constDt(v float64) func(plant.SimulationState) float64 {
	return func(plant.SimulationState) float64 { return v }
}

type countingRecorder struct {
	steps     int
	subcycles map[string]int
}

func (r *countingRecorder) RecordStep(time.Duration) { r.steps++ }
func (r *countingRecorder) RecordSubcycles(op string, n int) {
	if r.subcycles == nil {
		r.subcycles = map[string]int{}
	}
	r.subcycles[op] += n
}

// onceController fires a single time until reset.
type onceController struct {
	fired, resets int
	done          bool
}

func (c *onceController) Control(s plant.SimulationState) (plant.SimulationState, error) {
	if !c.done {
		c.fired++
		c.done = true
	}
	return s, nil
}

func (c *onceController) Reset() {
	c.done = false
	c.resets++
}

type sumMetric struct{ n int }

func (m *sumMetric) Name() string                  { return "observations" }
func (m *sumMetric) Observe(plant.SimulationState) { m.n++ }
func (m *sumMetric) Value() float64                { return float64(m.n) }
func (m *sumMetric) Reset()                        { m.n = 0 }

var powerProbe = solver.Probe{Name: "power", Value: func(s plant.SimulationState) float64 { return s.Neutronics.Power }}

var _ = Describe("SubcycleCount", func() {
	DescribeTable("covers dt with sub-steps no larger than dtMax",
		func(dt, dtMax float64, want int) {
			Expect(solver.SubcycleCount(dt, dtMax)).To(Equal(want))
		},
		Entry("stable", 0.1, 0.5, 1),
		Entry("equal", 0.5, 0.5, 1),
		Entry("unbounded", 1.0, math.Inf(1), 1),
		Entry("ceil", 1.0, 0.3, 4),
		Entry("exact multiple", 1.0, 0.25, 4),
		Entry("capped", 10.0, 1e-6, solver.MaxSubcycles),
		Entry("zero bound", 1.0, 0.0, solver.MaxSubcycles),
	)
})

var _ = Describe("Scheduler.Step", func() {
	var (
		a, b  *fakeOp
		sched *solver.Scheduler
		state plant.SimulationState
	)

	BeforeEach(func() {
		a = &fakeOp{name: "a", dtMax: constDt(0.3), f: func(p, dt float64) float64 { return p + dt }}
		b = &fakeOp{name: "b", f: func(p, dt float64) float64 { return 2 * p }}
		sched = solver.New(a, b)
		state = plant.SimulationState{Time: 2}
	})

	It("subcycles each operator at its own sub-step", func() {
		next, err := sched.Step(context.Background(), state, 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.dts).To(HaveLen(4))
		for _, dt := range a.dts {
			Expect(dt).To(BeNumerically("~", 0.25, 1e-12))
		}
		Expect(a.times).To(HaveLen(4))
		Expect(a.times[0]).To(BeNumerically("~", 2.0, 1e-12))
		Expect(a.times[3]).To(BeNumerically("~", 2.75, 1e-12))

		Expect(b.times).To(ConsistOf(2.0))
		Expect(next.Time).To(Equal(3.0))
	})

	It("feeds each operator the result of the previous one", func() {
		next, err := sched.Step(context.Background(), state, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.Power).To(BeNumerically("~", 2.0, 1e-12))
	})

	It("sizes each operator's sub-steps from the state it receives", func() {
		b.dtMax = func(s plant.SimulationState) float64 {
			if s.Neutronics.Power > 0.5 {
				return 0.0625
			}
			return 1
		}
		rec := &countingRecorder{}
		sched.SetRecorder(rec)
		_, err := sched.Step(context.Background(), state, 1)
		Expect(err).NotTo(HaveOccurred())
		// a raises power to 1 before b runs
		Expect(rec.subcycles).To(Equal(map[string]int{"a": 4, "b": 16}))
		Expect(b.dts).To(HaveLen(16))
		Expect(b.times[15]).To(BeNumerically("~", 2.9375, 1e-12))
	})

	It("does not mutate its input", func() {
		_, err := sched.Step(context.Background(), state, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Neutronics.Power).To(Equal(0.0))
		Expect(state.Time).To(Equal(2.0))
	})

	It("returns operator errors with the operator name", func() {
		boom := errors.New("boom")
		b.err = boom
		next, err := sched.Step(context.Background(), state, 1)
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("b: boom"))
		Expect(next.Time).To(Equal(2.0))
	})

	It("rejects a non-positive dt", func() {
		_, err := sched.Step(context.Background(), state, 0)
		Expect(err).To(MatchError(solver.ErrInvalidDt))
	})

	It("reports sub-steps to the recorder", func() {
		rec := &countingRecorder{}
		sched.SetRecorder(rec)
		_, err := sched.Step(context.Background(), state, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.steps).To(Equal(1))
		Expect(rec.subcycles).To(Equal(map[string]int{"a": 4, "b": 1}))
	})
})

var _ = Describe("Scheduler.Run", func() {
	var (
		op    *fakeOp
		sched *solver.Scheduler
		cfg   solver.Config
	)

	BeforeEach(func() {
		op = &fakeOp{name: "decay", f: func(p, dt float64) float64 { return p - dt*p }}
		sched = solver.New(op)
		sched.AddProbe(powerProbe)
		cfg = solver.Config{Dt: 0.1, Duration: 1, SampleEvery: 1, ValidateState: true}
	})

	It("samples the initial state and every step", func() {
		res, err := sched.Run(context.Background(), plant.SimulationState{Neutronics: plant.NeutronicsState{Power: 1}}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(10))
		Expect(res.Trace.Times).To(HaveLen(11))
		Expect(res.Trace.Column("power")[10]).To(BeNumerically("~", math.Pow(0.9, 10), 1e-12))
		Expect(res.Final.Time).To(BeNumerically("~", 1.0, 1e-9))
		Expect(res.Subcycles).To(HaveKeyWithValue("decay", 10))
	})

	It("thins the trace with SampleEvery", func() {
		cfg.SampleEvery = 5
		res, err := sched.Run(context.Background(), plant.SimulationState{}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Trace.Rows).To(HaveLen(3))
	})

	It("runs the controller and metrics each step", func() {
		calls := 0
		sched.SetController(solver.ControllerFunc(func(s plant.SimulationState) (plant.SimulationState, error) {
			calls++
			return s, nil
		}))
		m := &sumMetric{}
		sched.AddMetric(m)

		res, err := sched.Run(context.Background(), plant.SimulationState{}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(10))
		Expect(res.Metrics).To(HaveKeyWithValue("observations", 11.0))
	})

	It("resets a stateful controller before each run", func() {
		c := &onceController{}
		sched.SetController(c)
		for i := 0; i < 2; i++ {
			_, err := sched.Run(context.Background(), plant.SimulationState{}, cfg)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(c.resets).To(Equal(2))
		Expect(c.fired).To(Equal(2))
	})

	It("stops with a SimError on a non-finite state", func() {
		op.f = func(p, dt float64) float64 { return math.NaN() }
		res, err := sched.Run(context.Background(), plant.SimulationState{}, cfg)
		var simErr *solver.SimError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(0))
		Expect(err).To(MatchError(plant.ErrInvalidState))
		Expect(res.StepsTaken).To(Equal(0))
	})

	It("stops between steps when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := sched.Run(ctx, plant.SimulationState{}, cfg)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.StepsTaken).To(Equal(0))
	})

	DescribeTable("rejects invalid configs",
		func(c solver.Config, want error) {
			_, err := sched.Run(context.Background(), plant.SimulationState{}, c)
			Expect(err).To(MatchError(want))
		},
		Entry("zero dt", solver.Config{Dt: 0, Duration: 1}, solver.ErrInvalidDt),
		Entry("negative duration", solver.Config{Dt: 0.1, Duration: -1}, solver.ErrInvalidDuration),
	)
})
