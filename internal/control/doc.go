// Package control provides feedback controllers that act on the plant
// between outer steps.
//
//   - [PID]: clamped proportional-integral-derivative loop
//   - [RodController]: automatic rod control holding core power
//
// Controllers satisfy [solver.Controller] and compose with [Chain]:
//
//	rods := control.NewRodController(control.DefaultRodConfig(), logger)
//	sched.SetController(control.Chain(timeline, rods))
package control
