// Package forecast fits an additive time-series model (linear trend plus
// weekly seasonality) to daily metric history and projects it forward with
// confidence bands.
package forecast

import (
	"fmt"
	"math"
	"time"

	"aurix/internal/domain"
)

// zScore95 is the two-sided z value for a 95% confidence band.
const zScore95 = 1.96

// numFeatures is intercept + trend + six day-of-week dummies
// (Sunday is the baseline).
const numFeatures = 8

// Observation is one day of metric history.
type Observation struct {
	Date  time.Time
	Value float64
}

// Model is a fitted additive model.
type Model struct {
	coef        [numFeatures]float64
	start       time.Time // first observed day, trend origin
	residualStd float64   // sample standard deviation of residuals
	n           int       // observations fitted
}

// features builds the design row for a date: intercept, days since the
// trend origin, and day-of-week dummies.
func (m *Model) features(date time.Time) [numFeatures]float64 {
	var x [numFeatures]float64
	x[0] = 1
	x[1] = date.Sub(m.start).Hours() / 24
	if dow := int(date.Weekday()); dow > 0 {
		x[1+dow] = 1
	}
	return x
}

// Fit estimates model coefficients by ordinary least squares over the
// observations. Requires at least numFeatures points and a solvable
// normal-equation system.
func Fit(obs []Observation) (*Model, error) {
	if len(obs) < numFeatures {
		return nil, fmt.Errorf("need at least %d observations to fit, got %d", numFeatures, len(obs))
	}

	m := &Model{start: domain.Midnight(obs[0].Date), n: len(obs)}

	// Normal equations: (X'X) b = X'y
	var xtx [numFeatures][numFeatures]float64
	var xty [numFeatures]float64

	for _, o := range obs {
		x := m.features(o.Date)
		for i := 0; i < numFeatures; i++ {
			for j := 0; j < numFeatures; j++ {
				xtx[i][j] += x[i] * x[j]
			}
			xty[i] += x[i] * o.Value
		}
	}

	coef, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	m.coef = coef

	// Sample residual spread drives the confidence band width.
	var sumSq float64
	for _, o := range obs {
		r := o.Value - m.Predict(o.Date)
		sumSq += r * r
	}
	if len(obs) > 1 {
		m.residualStd = math.Sqrt(sumSq / float64(len(obs)-1))
	}

	return m, nil
}

// Predict returns the fitted value for a date.
func (m *Model) Predict(date time.Time) float64 {
	x := m.features(date)
	var y float64
	for i := 0; i < numFeatures; i++ {
		y += m.coef[i] * x[i]
	}
	return y
}

// Interval returns the 95% confidence band around the prediction.
func (m *Model) Interval(date time.Time) domain.ConfidenceInterval {
	y := m.Predict(date)
	margin := zScore95 * m.residualStd
	return domain.ConfidenceInterval{Lower: y - margin, Upper: y + margin}
}

// Accuracy scores the in-sample fit as max(0, 1-MAPE) over nonzero
// actuals. Returns nil when every actual is zero.
func (m *Model) Accuracy(obs []Observation) *float64 {
	var sum float64
	var count int
	for _, o := range obs {
		if o.Value == 0 {
			continue
		}
		sum += math.Abs((o.Value - m.Predict(o.Date)) / o.Value)
		count++
	}
	if count == 0 {
		return nil
	}

	accuracy := math.Max(0, 1-sum/float64(count))
	return &accuracy
}

// solve runs Gaussian elimination with partial pivoting on A b = y.
func solve(a [numFeatures][numFeatures]float64, y [numFeatures]float64) ([numFeatures]float64, error) {
	var b [numFeatures]float64

	for col := 0; col < numFeatures; col++ {
		pivot := col
		for row := col + 1; row < numFeatures; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return b, fmt.Errorf("singular design matrix, not enough variation in history")
		}
		a[col], a[pivot] = a[pivot], a[col]
		y[col], y[pivot] = y[pivot], y[col]

		for row := col + 1; row < numFeatures; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < numFeatures; k++ {
				a[row][k] -= factor * a[col][k]
			}
			y[row] -= factor * y[col]
		}
	}

	for row := numFeatures - 1; row >= 0; row-- {
		sum := y[row]
		for k := row + 1; k < numFeatures; k++ {
			sum -= a[row][k] * b[k]
		}
		b[row] = sum / a[row][row]
	}
	return b, nil
}
