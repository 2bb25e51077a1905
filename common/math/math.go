package math

import (
	"math"
)

// RoundFloat rounds your floating point number to the desired decimal place
func RoundFloat(x float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Round(x*pow) / pow
}

// PeriodReturns converts a series of values into simple per-period returns.
// Periods starting from a non-positive value are skipped
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	resp := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		resp = append(resp, values[i]/values[i-1]-1)
	}
	return resp
}

// CalculateCompoundAnnualGrowthRate Calculates CAGR as a fraction.
// Using years, intervals per year would be 1 and number of intervals would be the number of years
// Using days, intervals per year would be 252 and number of intervals would be the number of days
func CalculateCompoundAnnualGrowthRate(openValue, closeValue, intervalsPerYear, numberOfIntervals float64) float64 {
	if openValue <= 0 || closeValue < 0 || numberOfIntervals <= 0 || intervalsPerYear <= 0 {
		return 0
	}
	return math.Pow(closeValue/openValue, intervalsPerYear/numberOfIntervals) - 1
}

// CalculateCalmarRatio is the compounded annual rate of return versus its maximum drawdown
func CalculateCalmarRatio(compoundAnnualGrowthRate, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return compoundAnnualGrowthRate / maxDrawdown
}

// MaxDrawdown returns the largest running peak-to-trough decline of values
// as a fraction of the peak
func MaxDrawdown(values []float64) float64 {
	var peak, largest float64
	for i := range values {
		if values[i] > peak {
			peak = values[i]
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - values[i]) / peak
		if dd > largest {
			largest = dd
		}
	}
	return largest
}

// PopulationStandardDeviation calculates standard deviation using population based calculation
func PopulationStandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := ArithmeticAverage(values)
	diffs := make([]float64, len(values))
	for x := range values {
		diffs[x] = math.Pow(values[x]-avg, 2)
	}
	return math.Sqrt(ArithmeticAverage(diffs))
}

// SampleStandardDeviation standard deviation is a statistic that
// measures the dispersion of a dataset relative to its mean and
// is calculated as the square root of the variance
func SampleStandardDeviation(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(vals)
	var combined float64
	for i := range vals {
		combined += math.Pow(vals[i]-mean, 2)
	}
	return math.Sqrt(combined / float64(len(vals)-1))
}

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumOfValues float64
	for x := range values {
		sumOfValues += values[x]
	}
	return sumOfValues / float64(len(values))
}

// CalculateSortinoRatio returns the per-period sortino ratio of returns compared
// to a per-period risk-free rate. Only returns below the risk-free rate contribute
// to the downside deviation
func CalculateSortinoRatio(movementPerCandle []float64, riskFreeRate float64) float64 {
	if len(movementPerCandle) <= 1 {
		return 0
	}
	totalNegativeResultsSquared := 0.0
	for x := range movementPerCandle {
		if movementPerCandle[x]-riskFreeRate < 0 {
			totalNegativeResultsSquared += math.Pow(movementPerCandle[x]-riskFreeRate, 2)
		}
	}
	averageDownsideDeviation := math.Sqrt(totalNegativeResultsSquared / float64(len(movementPerCandle)-1))
	if averageDownsideDeviation == 0 {
		return 0
	}
	return (ArithmeticAverage(movementPerCandle) - riskFreeRate) / averageDownsideDeviation
}

// CalculateSharpeRatio returns the per-period sharpe ratio of returns compared
// to a per-period risk-free rate
func CalculateSharpeRatio(movementPerCandle []float64, riskFreeRate float64) float64 {
	if len(movementPerCandle) <= 1 {
		return 0
	}
	excessReturns := make([]float64, len(movementPerCandle))
	for i := range movementPerCandle {
		excessReturns[i] = movementPerCandle[i] - riskFreeRate
	}
	standardDeviation := SampleStandardDeviation(excessReturns)
	if standardDeviation == 0 {
		return 0
	}
	return ArithmeticAverage(excessReturns) / standardDeviation
}
