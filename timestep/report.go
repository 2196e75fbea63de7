package timestep

import (
	"github.com/sirupsen/logrus"
)

// Reporter is the iteration log: named diagnostic arrays registered for
// the per-iteration report, clipping counts with extrema, and the
// min/max-with-location lines at high verbosity. Backed by logrus, the
// structured logger used across our solvers.
type Reporter struct {
	Log *logrus.Logger

	// DefaultActive mirrors the "default log is active" switch: when
	// false and verbosity is low, diagnostic passes are skipped
	// entirely to avoid wasted computation each iteration.
	DefaultActive bool

	arrays map[string][]float64
	clips  map[string]ClipCounts
}

// ClipCounts is the recorded outcome of one limiter for the iteration
// report. Clipped is the one-sided limiter count; NMin/NMax count the
// cells clipped at the lower and upper bound.
type ClipCounts struct {
	Clipped    int
	NMin, NMax int
	Min, Max   float64 // pre-clip extrema of the one-sided limiter
}

// NewReporter wraps a logger; nil gets the standard logger.
func NewReporter(log *logrus.Logger) *Reporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reporter{
		Log:           log,
		DefaultActive: true,
		arrays:        make(map[string][]float64),
		clips:         make(map[string]ClipCounts),
	}
}

// AddArray registers a named per-cell diagnostic for the iteration
// report. The latest registration wins within one iteration.
func (r *Reporter) AddArray(name, category string, vals []float64) {
	snapshot := make([]float64, len(vals))
	copy(snapshot, vals)
	r.arrays[name] = snapshot
	r.Log.WithFields(logrus.Fields{
		"category": category,
		"cells":    len(vals),
	}).Debugf("iteration log array %q registered", name)
}

// Array returns a registered diagnostic array, or nil.
func (r *Reporter) Array(name string) []float64 { return r.arrays[name] }

// Clipping reports how many cells a named limiter clipped, with the
// pre-clip extrema. The counts are recorded even when zero so the
// latest iteration's outcome is always observable.
func (r *Reporter) Clipping(label string, nClipped int, vmin, vmax float64) {
	r.clips[label] = ClipCounts{Clipped: nClipped, Min: vmin, Max: vmax}
	if nClipped == 0 {
		return
	}
	r.Log.WithFields(logrus.Fields{
		"clipped": nClipped,
		"min":     vmin,
		"max":     vmax,
	}).Infof("clipping %s", label)
}

// ClipBounds reports min/max bound clipping counts for a field.
func (r *Reporter) ClipBounds(fieldName string, nMin, nMax int, dtMin, dtMax float64) {
	r.clips[fieldName] = ClipCounts{NMin: nMin, NMax: nMax}
	if nMin == 0 && nMax == 0 {
		return
	}
	r.Log.Infof("%s clipping: %d at %11.4e, %d at %11.4e", fieldName, nMin, dtMin, nMax, dtMax)
}

// Clips returns the recorded counts of a named limiter, or the zero
// value when the limiter has not reported.
func (r *Reporter) Clips(label string) ClipCounts { return r.clips[label] }

// Banner logs the iteration header once the uniform step is settled.
func (r *Reporter) Banner(t float64, iter int) {
	if !r.DefaultActive {
		return
	}
	r.Log.Infof("INSTANT %18.9e   TIME STEP NUMBER %d", t, iter)
}

// Extrema logs a diagnostic's global extrema with their locations.
func (r *Reporter) Extrema(label string, hi float64, xyzHi [3]float64, lo float64, xyzLo [3]float64) {
	r.Log.Infof(" %s MAX=%11.4e at (%11.4e %11.4e %11.4e)", label, hi, xyzHi[0], xyzHi[1], xyzHi[2])
	r.Log.Infof(" %s MIN=%11.4e at (%11.4e %11.4e %11.4e)", label, lo, xyzLo[0], xyzLo[1], xyzLo[2])
}
