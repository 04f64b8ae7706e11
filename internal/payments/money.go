package payments

import "math"

// MinorUnits converts an amount in major currency units to minor units
// (groszy/cents). All adapters go through this single conversion so repeated
// calls for the same amount always produce the same integer.
// Examples: 49.99 -> 4999, 123.45 -> 12345.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
