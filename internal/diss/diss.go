package diss

import "math"

// KolmogorovBeta is the spectral index of a Kolmogorov electron-density
// wavenumber spectrum.
const KolmogorovBeta = 11.0 / 3.0

// Scaler scales diffractive interstellar scintillation parameters measured at
// a reference frequency to a set of target frequencies. Frequencies share
// whatever unit the caller uses; only their ratio matters.
type Scaler interface {
	// ScaleDecorrelationTime scales the scintillation timescale dtd.
	ScaleDecorrelationTime(dtd, nuRef float64, nus []float64) []float64

	// ScaleDecorrelationBandwidth scales the scintillation bandwidth dnud.
	ScaleDecorrelationBandwidth(dnud, nuRef float64, nus []float64) []float64

	// ScaleScatteringTime scales the pulse-broadening time taud.
	ScaleScatteringTime(taud, nuRef float64, nus []float64) []float64
}

// PowerLaw implements Scaler for a power-law wavenumber spectrum with index
// Beta. The zero value is not usable, use Kolmogorov or NewPowerLaw.
type PowerLaw struct {
	Beta float64
}

// Kolmogorov is the scaling law used unless configured otherwise.
var Kolmogorov = PowerLaw{Beta: KolmogorovBeta}

// NewPowerLaw returns a scaler for the spectral index beta. beta must lie in
// (2, 4) for the exponents below to be finite.
func NewPowerLaw(beta float64) PowerLaw {
	return PowerLaw{Beta: beta}
}

func (p PowerLaw) bandwidthIndex() float64 {
	return 2 * p.Beta / (p.Beta - 2)
}

func (p PowerLaw) timeIndex() float64 {
	return 2 / (p.Beta - 2)
}

// ScaleDecorrelationTime scales as nu^(2/(beta-2)), nu^(6/5) for Kolmogorov.
func (p PowerLaw) ScaleDecorrelationTime(dtd, nuRef float64, nus []float64) []float64 {
	return scale(dtd, nuRef, nus, p.timeIndex())
}

// ScaleDecorrelationBandwidth scales as nu^(2beta/(beta-2)), nu^(22/5) for
// Kolmogorov.
func (p PowerLaw) ScaleDecorrelationBandwidth(dnud, nuRef float64, nus []float64) []float64 {
	return scale(dnud, nuRef, nus, p.bandwidthIndex())
}

// ScaleScatteringTime scales inversely to the decorrelation bandwidth.
func (p PowerLaw) ScaleScatteringTime(taud, nuRef float64, nus []float64) []float64 {
	return scale(taud, nuRef, nus, -p.bandwidthIndex())
}

func scale(v, nuRef float64, nus []float64, index float64) []float64 {
	out := make([]float64, len(nus))
	for i, nu := range nus {
		out[i] = v * math.Pow(nu/nuRef, index)
	}
	return out
}
