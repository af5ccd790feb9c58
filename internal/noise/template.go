package noise

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// MaxVariance caps per-channel variances so that hopeless channels stay
	// finite in later inversions and on log-scaled plots.
	MaxVariance = 1e100

	receiverTemperature = 20.0  // K
	skyTemperature408   = 20.0  // K at 408 MHz
	skyReference        = 0.408 // GHz
	gainConstant        = 2760.0
	absorptionIndex     = -2.1
)

// SystemTemperature returns the receiver plus sky temperature in K at
// frequency nu (GHz) for a sky spectral index beta.
func SystemTemperature(nu, beta float64) float64 {
	return receiverTemperature + skyTemperature408*math.Pow(nu/skyReference, -beta)
}

// absorptionDepth is the free-free optical depth at the reference frequency.
// It is zero unless every line-of-sight parameter is known.
func (m *Model) absorptionDepth() float64 {
	p := m.profile
	if p.DM == 0 || p.Distance == 0 || p.ElectronTemperature == 0 || p.FillingFactor == 0 {
		return 0
	}
	return 3.27e-8 * math.Pow(p.FillingFactor/0.2, -1) * p.DM * p.DM / p.Distance *
		math.Pow(p.ElectronTemperature/100, -1.35)
}

// SignalToNoise returns the expected S/N of the integrated profile in each
// channel.
func (m *Model) SignalToNoise(ch Channels) []float64 {
	p := m.profile
	tau := m.absorptionDepth()

	out := make([]float64, ch.Len())
	for i, nu := range ch.Freqs {
		x := nu / m.refFrequency
		numer := p.ReferenceFlux * 1e-3 * math.Pow(x, -p.Alpha) *
			math.Sqrt(ch.Widths[i]*1e9*m.integrationTime) *
			math.Exp(-tau*math.Pow(x, absorptionIndex))
		denom := (gainConstant / p.EffectiveArea) * SystemTemperature(nu, p.Beta)
		out[i] = numer / denom
	}
	return out
}

// TemplateFittingErrors returns the per-channel template-fitting TOA error
// in microseconds, including the scattering correction.
func (m *Model) TemplateFittingErrors(ch Channels) ([]float64, error) {
	weffs, err := m.profile.Weff.Resolve(ch.Len())
	if err != nil {
		return nil, err
	}

	sigmas := m.SignalToNoise(ch)
	for i := range sigmas {
		sigmas[i] = weffs[i] / sigmas[i]
	}

	if m.profile.ScatteringTime > 0 {
		tauds := m.scaler.ScaleScatteringTime(m.profile.ScatteringTime, m.refFrequency, ch.Freqs)
		factors, err := m.scatteringFactors(tauds, weffs)
		if err != nil {
			return nil, err
		}
		for i := range sigmas {
			sigmas[i] *= factors[i]
		}
	}
	return sigmas, nil
}

func (m *Model) scatteringFactors(tauds, weffs []float64) ([]float64, error) {
	if m.corrector != nil {
		return m.corrector.Factors(tauds, weffs)
	}

	out := make([]float64, len(tauds))
	for i := range tauds {
		if tauds[i]/weffs[i] > minScatteringRatio {
			return nil, NewConfigError("an amplitude-ratio table is required for scattered pulsars")
		}
		out[i] = 1
	}
	return out, nil
}

// TemplateFittingCovariance returns the diagonal template-fitting
// covariance. Variances are capped at MaxVariance and channels inside any
// mask get zero variance.
func (m *Model) TemplateFittingCovariance(ch Channels) (*mat.SymDense, error) {
	sigmas, err := m.TemplateFittingErrors(ch)
	if err != nil {
		return nil, err
	}

	cov := mat.NewSymDense(ch.Len(), nil)
	for i, sigma := range sigmas {
		v := sigma * sigma
		if v > MaxVariance || math.IsNaN(v) {
			v = MaxVariance
		}
		for _, mask := range m.masks {
			if mask.Contains(ch.Freqs[i]) {
				v = 0
				break
			}
		}
		cov.SetSym(i, i, v)
	}
	return cov, nil
}
