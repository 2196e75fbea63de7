package timestep

// Coupler is the external-code rendezvous: before an adaptive uniform
// step is applied, all coupled participants exchange their proposed
// scalar step and iteration bounds and every participant adopts the
// negotiated result. The exchange is a blocking rendezvous; the
// communication layer beneath it owns failure handling.
type Coupler interface {
	Sync(proposedDt float64, prevIter int, maxIter int) (dt float64, negotiatedMaxIter int)
}

// EchoCoupler is the stand-alone implementation: no peers, the
// proposal is adopted unchanged.
type EchoCoupler struct{}

func (EchoCoupler) Sync(proposedDt float64, _ int, maxIter int) (float64, int) {
	return proposedDt, maxIter
}
