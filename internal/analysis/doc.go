// Package analysis characterizes recorded closed-loop runs.
//
// The package works on plain time series as stored by a run trace:
//
//   - [StepResponse]: rise time, settling time and steady-state error of the
//     tracking error magnitude
//   - [Spectrum]: power spectrum and dominant frequency, to spot limit cycles
//     caused by aggressive gains or integral windup
//   - [Portrait]: a 2D phase portrait with an ASCII renderer
//
// A well tuned loop settles without ringing:
//
//	r := analysis.StepResponse(trace.Times, trace.ErrorNorms, 0.02)
//	if !r.Settled {
//	    // Still moving at the end of the run.
//	}
package analysis
