package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// DispersionConstant is the cold-plasma dispersion constant in
	// μs GHz² pc⁻¹ cm³.
	DispersionConstant = 4.149e3

	// DMnuCorrection is the empirical divisor applied to the squared
	// frequency-dependent DM error. Kept as published.
	DMnuCorrection = 25.0

	chromaticIndex = -4.4

	dmNuG    = 0.46
	dmNuQ    = 1.15
	dmNuBeta = 11.0 / 3.0
)

// DMMisestimation returns the TOA error, in microseconds, caused by fitting
// the dispersion measure across the band with noise covariance v. It adds
// in quadrature the infinite-frequency arrival-time variance of the GLS fit,
// the frequency-dependent DM error and the scattering-variation error
// propagated through the same fit.
//
// A band with a single distinct frequency cannot constrain DM and
// contributes nothing.
func (m *Model) DMMisestimation(ch Channels, v mat.Symmetric) (float64, error) {
	n := ch.Len()
	if v.SymmetricDim() != n {
		return 0, fmt.Errorf("%w: covariance is %dx%d for %d channels", ErrChannelMismatch, v.SymmetricDim(), v.SymmetricDim(), n)
	}

	numax, numin := ch.Max(), ch.Min()
	if numax == numin {
		return 0, nil
	}

	x := mat.NewDense(n, 2, nil)
	for i, nu := range ch.Freqs {
		x.Set(i, 0, 1)
		x.Set(i, 1, DispersionConstant/(nu*nu))
	}

	chol, err := factorize(v)
	if err != nil {
		return 0, err
	}

	// V⁻¹X, then P = (XᵀV⁻¹X)⁻¹.
	var vix mat.Dense
	if err = solve(chol, &vix, x); err != nil {
		return 0, err
	}
	var normal mat.Dense
	normal.Mul(x.T(), &vix)

	var p mat.Dense
	if err = p.Inverse(&normal); err != nil {
		if err = tolerateCondition(err); err != nil {
			return 0, err
		}
	}
	templateVar := p.At(0, 0)

	dmNuVar := math.Pow(DMnuError(m.profile.DecorrelationBandwidth, numax, numin), 2) / DMnuCorrection

	chromatic := mat.NewVecDense(n, nil)
	for i, nu := range ch.Freqs {
		chromatic.SetVec(i, m.profile.TauVar*math.Pow(nu, chromaticIndex))
	}
	var proj, fit mat.VecDense
	proj.MulVec(vix.T(), chromatic)
	fit.MulVec(&p, &proj)
	scatteringVar := fit.AtVec(0) * fit.AtVec(0)

	return math.Sqrt(templateVar + dmNuVar + scatteringVar), nil
}

// DMnuError returns the TOA error in microseconds from the frequency
// dependence of DM between nu1 and nu2 (nu2 < nu1, GHz) for a medium with
// scintillation bandwidth dnuiss.
func DMnuError(dnuiss, nu1, nu2 float64) float64 {
	phiF := 9.6 * math.Pow((nu1/dnuiss)/100, 5.0/12)
	r := nu1 / nu2
	return 0.184 * dmNuG * dmNuQ * eBeta(r, dmNuBeta) * (phiF * phiF / (nu1 * 1000))
}

func fBeta(r, beta float64) float64 {
	v := math.Pow(2, (4-beta)/2)*math.Pow(1+math.Pow(r, 2*beta/(beta-2)), (beta-2)/2) - math.Pow(r, beta) - 1
	return math.Sqrt(math.Max(v, 0))
}

func eBeta(r, beta float64) float64 {
	r2 := r * r
	return math.Abs(r2/(r2-1)) * fBeta(r, beta)
}
