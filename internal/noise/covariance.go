package noise

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// JitterCovariance returns the pulse-jitter covariance. A jitter event moves
// the pulse in every channel at once, so entry (i, j) is σ_J,i·σ_J,j.
func (m *Model) JitterCovariance(ch Channels) (*mat.SymDense, error) {
	sigmas, err := m.profile.Jitter.Resolve(ch.Len())
	if err != nil {
		return nil, err
	}

	cov := mat.NewSymDense(ch.Len(), nil)
	cov.SymOuterK(1, mat.NewVecDense(len(sigmas), sigmas))
	return cov, nil
}

// ScintillationErrors returns the per-channel finite-scintle TOA error in
// microseconds. The scattering time, decorrelation bandwidth and
// decorrelation time are each scaled to the channel frequency independently.
func (m *Model) ScintillationErrors(ch Channels) []float64 {
	p := m.profile

	// τ_d in μs, Δν_d in GHz.
	taud0 := p.ScatteringTime
	dnud0 := 1e-3 * p.C1 / (2 * math.Pi * taud0)
	dtd := m.scaler.ScaleDecorrelationTime(p.DecorrelationTime, m.refFrequency, ch.Freqs)
	dnud := m.scaler.ScaleDecorrelationBandwidth(dnud0, m.refFrequency, ch.Freqs)
	taud := m.scaler.ScaleScatteringTime(taud0, m.refFrequency, ch.Freqs)

	out := make([]float64, ch.Len())
	for i := range out {
		nScintles := (1 + m.etaNu*ch.Widths[i]/dnud[i]) * (1 + m.etaT*m.integrationTime/dtd[i])
		out[i] = taud[i] / math.Sqrt(nScintles)
	}
	return out
}

// ScintillationCovariance returns the diagonal scintillation covariance.
// Treating channels as independent only holds when each sees many scintles.
func (m *Model) ScintillationCovariance(ch Channels) (*mat.SymDense, error) {
	return diagonal(m.ScintillationErrors(ch)), nil
}

// PolarizationCovariance returns the diagonal polarization-calibration
// covariance, σ = ε·π_V·W50/100 per channel.
func (m *Model) PolarizationCovariance(ch Channels) (*mat.SymDense, error) {
	n := ch.Len()
	w50s, err := m.profile.W50.Resolve(n)
	if err != nil {
		return nil, err
	}
	leakage, err := m.profile.Leakage.Resolve(n)
	if err != nil {
		return nil, err
	}
	circular, err := m.profile.CircularFraction.Resolve(n)
	if err != nil {
		return nil, err
	}

	sigmas := make([]float64, n)
	for i := range sigmas {
		sigmas[i] = leakage[i] * circular[i] * (w50s[i] / 100)
	}
	return diagonal(sigmas), nil
}

func diagonal(sigmas []float64) *mat.SymDense {
	cov := mat.NewSymDense(len(sigmas), nil)
	for i, s := range sigmas {
		cov.SetSym(i, i, s*s)
	}
	return cov
}
