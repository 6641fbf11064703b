package control

import "math"

// PID is a discrete PID loop with output clamping. The integral is frozen
// while the output saturates.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	Min    float64
	Max    float64

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		Min:    math.Inf(-1),
		Max:    math.Inf(1),
		first:  true,
	}
}

// Update returns the clamped output for measurement x at time t.
func (p *PID) Update(x, t float64) float64 {
	err := p.Target - x

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.clamp(p.Kp*err + p.Ki*p.integral)
	}

	dt := t - p.prevT
	if dt <= 0 {
		return p.clamp(p.Kp*err + p.Ki*p.integral)
	}

	derivative := (err - p.prevErr) / dt
	integral := p.integral + err*dt
	u := p.Kp*err + p.Ki*integral + p.Kd*derivative
	if u == p.clamp(u) {
		p.integral = integral
	}

	p.prevErr = err
	p.prevT = t
	return p.clamp(u)
}

func (p *PID) clamp(u float64) float64 {
	return math.Max(p.Min, math.Min(p.Max, u))
}

// Reset clears integral and derivative state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// Params returns the tunable gains and setpoint.
func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}
