// Package steam closes water control volumes: given mass, extensive
// internal energy and volume it returns temperature, pressure, phase and
// vapor quality.
//
// Saturation properties use the IAPWS auxiliary equations (Wagner–Pruss
// for the saturation pressure and densities, the α auxiliary for the
// enthalpies). Compressed liquid takes its internal energy from the
// saturated liquid at T and its density from a constant bulk modulus.
// Superheated vapor uses a constant cv above the saturation temperature.
//
// A [Solver] has two paths:
//
//   - [Table.Lookup]: a triangulated compressed-liquid table in
//     (u, ln v) space, interpolated barycentrically
//   - [Solver.SolveSaturation]: bounded bisection on the saturation
//     temperature, which is authoritative
//
// Table misses (including the gaps along the saturation line) fall back to
// the bisection. Inputs that cannot be interpreted return [DefaultState].
// Every path is counted; see [Stats].
package steam
