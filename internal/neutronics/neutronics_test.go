package neutronics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/plant"
)

const nominal = 1e9

func coreState() plant.SimulationState {
	n := plant.NeutronicsState{
		CoreNodeID:                    "core",
		FuelNodeID:                    "fuel",
		CoolantNodeID:                 "core",
		Power:                         nominal,
		NominalPower:                  nominal,
		NeutronPopulation:             1,
		PromptNeutronLifetime:         2e-5,
		DelayedFraction:               0.0065,
		DecayConstant:                 0.08,
		DopplerCoefficient:            -2.5e-5,
		CoolantTemperatureCoefficient: -2e-4,
		CoolantDensityCoefficient:     1e-4,
		FuelTemperatureRef:            900,
		CoolantTemperatureRef:         580,
		CoolantDensityRef:             10000.0 / 14,
		ControlRodPosition:            1,
		ControlRodWorth:               0.05,
		DecayHeatFraction:             0.07,
		DecayHeatBasePower:            nominal,
	}
	n.Precursors = neutronics.EquilibriumPrecursors(n)
	return plant.SimulationState{
		ThermalNodes: map[string]plant.ThermalNode{
			"fuel": {ID: "fuel", Label: "fuel", Temperature: 900, Mass: 80000, SpecificHeat: 300, MaxTemperature: 1500},
		},
		FlowNodes: map[string]plant.FlowNode{
			"core": {ID: "core", Label: "core coolant", Volume: 14, Fluid: plant.Fluid{Mass: 10000, Temperature: 580}},
			"cold": {ID: "cold", Label: "cold leg", Volume: 14, Fluid: plant.Fluid{Mass: 10000, Temperature: 560}},
		},
		FlowConnections: []plant.FlowConnection{
			{ID: "cold-core", From: "cold", To: "core", MassFlowRate: 8000},
		},
		Neutronics: n,
	}
}

func withFuel(s plant.SimulationState, id, label string, mass, T float64) plant.SimulationState {
	s.ThermalNodes[id] = plant.ThermalNode{ID: id, Label: label, Mass: mass, SpecificHeat: 300, Temperature: T}
	return s
}

var _ = Describe("ComputeReactivity", func() {
	It("is zero at the reference state with rods withdrawn", func() {
		b := neutronics.ComputeReactivity(coreState())
		Expect(b.Total).To(BeNumerically("~", 0, 1e-15))
		Expect(b.FuelTemperature).To(Equal(900.0))
	})

	It("charges rod worth for partial insertion", func() {
		s := coreState()
		s.Neutronics.ControlRodPosition = 0.5
		Expect(neutronics.ComputeReactivity(s).Rods).To(BeNumerically("~", -0.025, 1e-15))
	})

	It("mass-weights fuel-labelled nodes", func() {
		s := coreState()
		delete(s.ThermalNodes, "fuel")
		s = withFuel(s, "fuel-a", "Fuel pellet A", 1000, 1000)
		s = withFuel(s, "fuel-b", "fuel pellet B", 3000, 800)
		s = withFuel(s, "clad", "cladding", 5000, 2000)

		b := neutronics.ComputeReactivity(s)
		Expect(b.FuelTemperature).To(BeNumerically("~", 850, 1e-9))
		Expect(b.Doppler).To(BeNumerically("~", -2.5e-5*(850-900), 1e-15))
	})

	It("falls back to the fuel node reference when no label matches", func() {
		s := coreState()
		node := s.ThermalNodes["fuel"]
		node.Label = "pellet"
		node.Temperature = 1000
		s.ThermalNodes["fuel"] = node

		Expect(neutronics.ComputeReactivity(s).Doppler).To(BeNumerically("~", -2.5e-3, 1e-15))
	})

	It("averages coolant temperature and density over coolant nodes", func() {
		s := coreState()
		core := s.FlowNodes["core"]
		core.Fluid.Temperature = 590
		s.FlowNodes["core"] = core

		b := neutronics.ComputeReactivity(s)
		Expect(b.CoolantTemperatureAvg).To(Equal(590.0))
		Expect(b.CoolantTemperature).To(BeNumerically("~", -2e-3, 1e-15))
		Expect(b.CoolantDensity).To(BeNumerically("~", 0, 1e-12))
	})
})

var _ = Describe("Operator", func() {
	var op *neutronics.Operator

	BeforeEach(func() {
		op = neutronics.NewOperator(neutronics.DefaultLimits(), nil)
	})

	It("holds steady state at zero reactivity", func() {
		s := coreState()
		var err error
		for i := 0; i < 1000; i++ {
			s, err = op.Apply(s, 1e-3)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(s.Neutronics.NeutronPopulation).To(BeNumerically("~", 1, 1e-9))
		Expect(s.Neutronics.Power).To(BeNumerically("~", nominal, 1))
		Expect(s.Neutronics.Scrammed).To(BeFalse())
	})

	It("limits the population change to 400% per second", func() {
		s := coreState()
		s.Neutronics.ControlRodWorth = -0.05
		s.Neutronics.ControlRodPosition = 0

		next, err := op.Apply(s, 1e-3)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.NeutronPopulation).To(BeNumerically("~", 1.004, 1e-12))
		Expect(next.Neutronics.Reactivity).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("floors the population", func() {
		s := coreState()
		s.Neutronics.NeutronPopulation = 1e-13
		s.Neutronics.Precursors = 0
		s.Neutronics.ControlRodPosition = 0

		next, err := op.Apply(s, 1e-3)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.NeutronPopulation).To(BeNumerically(">=", 1e-12))
		Expect(next.Neutronics.Precursors).To(BeNumerically(">=", 1e-12))
	})

	It("arms the low-power trip once above it", func() {
		s := coreState()
		Expect(s.Neutronics.LowPowerTripArmed).To(BeFalse())
		next, err := op.Apply(s, 1e-3)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.LowPowerTripArmed).To(BeTrue())
	})

	It("scrams on high power and records the reason", func() {
		rec := &scramLog{}
		op.SetScramRecorder(rec)
		s := coreState()
		s.Time = 3
		s.Neutronics.NeutronPopulation = 1.4

		next, err := op.Apply(s, 1e-4)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.Scrammed).To(BeTrue())
		Expect(next.Neutronics.ScramTime).To(Equal(3.0))
		Expect(next.Neutronics.ScramReason).To(HavePrefix(neutronics.ReasonHighPower))
		Expect(next.Neutronics.ControlRodPosition).To(Equal(0.0))
		Expect(rec.reasons).To(HaveLen(1))
	})

	It("clears a scram once rods are withdrawn and reactivity is positive", func() {
		s := neutronics.TriggerScram(coreState(), neutronics.ReasonManual)
		s.Neutronics.ControlRodWorth = 0
		s.Neutronics.ControlRodPosition = 0.5
		fuel := s.ThermalNodes["fuel"]
		fuel.Temperature = 800
		s.ThermalNodes["fuel"] = fuel

		next, err := op.Apply(s, 1e-4)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.Scrammed).To(BeFalse())
		Expect(next.Neutronics.ScramReason).To(BeEmpty())
	})

	It("keeps the scram latched while rods are in", func() {
		s := neutronics.TriggerScram(coreState(), neutronics.ReasonManual)
		next, err := op.Apply(s, 1e-3)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Neutronics.Scrammed).To(BeTrue())
		Expect(next.Neutronics.NeutronPopulation).To(BeNumerically("<", 1))
	})

	It("rejects a core without a prompt lifetime", func() {
		s := coreState()
		s.Neutronics.PromptNeutronLifetime = 0
		_, err := op.Apply(s, 1e-3)
		Expect(err).To(HaveOccurred())
	})

	It("bounds the step by the prompt and delayed time constants", func() {
		s := coreState()
		want := 0.5 * 2e-5 / 0.0065
		Expect(op.MaxStableDt(s)).To(BeNumerically("~", want, 1e-15))
		Expect(op.SubcycleCount(s, 0.01)).To(Equal(7))
		Expect(op.SubcycleCount(s, 1e-3)).To(Equal(1))

		s.Neutronics.Reactivity = s.Neutronics.DelayedFraction
		Expect(op.MaxStableDt(s)).To(BeNumerically("~", 0.5/0.08, 1e-12))
	})
})

var _ = Describe("TriggerScram", func() {
	It("is idempotent", func() {
		s := coreState()
		s.Time = 5
		first := neutronics.TriggerScram(s, "first")
		first.Time = 7
		second := neutronics.TriggerScram(first, "second")

		Expect(second.Neutronics.Scrammed).To(BeTrue())
		Expect(second.Neutronics.ScramTime).To(Equal(5.0))
		Expect(second.Neutronics.ScramReason).To(Equal("first"))
		Expect(second.Neutronics.ControlRodPosition).To(Equal(0.0))
	})
})

var _ = Describe("CheckScramConditions", func() {
	limits := neutronics.DefaultLimits()

	DescribeTable("trip setpoints",
		func(mutate func(*plant.SimulationState), wantTrip bool, wantReason string) {
			s := coreState()
			mutate(&s)
			trip, reason := limits.CheckScramConditions(s)
			Expect(trip).To(Equal(wantTrip))
			Expect(reason).To(HavePrefix(wantReason))
		},
		Entry("nominal", func(s *plant.SimulationState) {}, false, ""),
		Entry("high power", func(s *plant.SimulationState) { s.Neutronics.Power = 1.3 * nominal }, true, neutronics.ReasonHighPower),
		Entry("low power armed", func(s *plant.SimulationState) {
			s.Neutronics.Power = 0.1 * nominal
			s.Neutronics.LowPowerTripArmed = true
		}, true, neutronics.ReasonLowPower),
		Entry("low power not armed", func(s *plant.SimulationState) { s.Neutronics.Power = 0.1 * nominal }, false, ""),
		Entry("fuel temperature", func(s *plant.SimulationState) {
			fuel := s.ThermalNodes["fuel"]
			fuel.Temperature = 1450
			s.ThermalNodes["fuel"] = fuel
		}, true, neutronics.ReasonFuelTemperature),
		Entry("low core flow", func(s *plant.SimulationState) { s.FlowConnections[0].MassFlowRate = 500 }, true, neutronics.ReasonLowCoreFlow),
		Entry("low core flow at low power", func(s *plant.SimulationState) {
			s.FlowConnections[0].MassFlowRate = 500
			s.Neutronics.NeutronPopulation = 0.01
		}, false, ""),
	)
})

var _ = Describe("Decay heat", func() {
	It("follows the ANS power law after the transient", func() {
		Expect(neutronics.ScramDecayFraction(10)).To(BeNumerically("~", 0.066*math.Pow(10, -0.2), 1e-15))
		Expect(neutronics.ScramDecayFraction(0.05)).To(BeNumerically("~", 0.066*math.Pow(0.1, -0.2), 1e-15))
		Expect(neutronics.ScramDecayFraction(1e9)).To(Equal(0.01))
	})

	It("relaxes toward the early value during the first 0.1 s", func() {
		n := coreState().Neutronics
		n.Scrammed = true
		n = neutronics.StepDecayHeat(n, 0.005, 0.005)
		target := 0.066 * math.Pow(0.1, -0.2)
		Expect(n.DecayHeatFraction).To(BeNumerically("~", 0.07+(target-0.07)*0.5, 1e-12))
	})

	It("creeps toward 7% only from below while at power", func() {
		n := coreState().Neutronics
		n.DecayHeatFraction = 0.05
		n = neutronics.StepDecayHeat(n, 1, 1)
		Expect(n.DecayHeatFraction).To(BeNumerically("~", 0.0502, 1e-12))

		n.DecayHeatFraction = 0.08
		n = neutronics.StepDecayHeat(n, 2, 1)
		Expect(n.DecayHeatFraction).To(Equal(0.08))
	})

	It("lags the base power behind fission power and freezes it at scram", func() {
		n := coreState().Neutronics
		n.NeutronPopulation = 0.5
		n = neutronics.StepDecayHeat(n, 1, 1)
		Expect(n.DecayHeatBasePower).To(BeNumerically("~", nominal-0.5*nominal/100, 1))
		f := n.DecayHeatFraction
		Expect(n.Power).To(BeNumerically("~", (1-f)*0.5*nominal+f*n.DecayHeatBasePower, 1e-3))

		n.Scrammed = true
		base := n.DecayHeatBasePower
		n = neutronics.StepDecayHeat(n, 10, 1)
		Expect(n.DecayHeatBasePower).To(Equal(base))
	})
})

type scramLog struct{ reasons []string }

func (l *scramLog) RecordScram(reason string) { l.reasons = append(l.reasons, reason) }
