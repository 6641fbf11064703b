// Package analysis post-processes recorded run traces.
//
//   - [Summarize]: extrema, mean, peak time and settling time of a column
//   - [Spectrum]: one-sided amplitude spectrum of a column
//   - [DominantFrequency]: strongest oscillation, e.g. of core power
//
// Power oscillations after a rod step show up as a clear spectral peak:
//
//	f, amp, ok := analysis.DominantFrequency(trace.Column("power_mw"), dt)
//	if ok {
//	    fmt.Printf("%.3f Hz, %.1f MW\n", f, amp)
//	}
package analysis
