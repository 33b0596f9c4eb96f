package bloomset

import (
	"fmt"
	"math"
)

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014

	// maxSizeInBits bounds the bit array so that byte and word counts
	// always fit in an int on 64-bit platforms.
	maxSizeInBits = uint64(1) << 50
)

// OptimalParams calculates the bit-array size and number of hash applications
// for a filter holding expectedItems at the given false positive rate.
//
// The raw optimum -n*ln(p)/ln(2)^2 is truncated to a whole number of bits and
// then rounded up to a multiple of 8 so the array maps onto whole bytes:
//
//	OptimalParams(27000, 0.0317) // sizeInBits = 193960, k = 5
//
// k is round((m/n) * ln(2)), never less than 1. An error wrapping
// [ErrInvalidParameters] is returned when expectedItems is zero, fpRate is
// outside the open interval (0, 1), or the resulting filter would be empty
// or unreasonably large.
func OptimalParams(expectedItems uint64, fpRate float64) (sizeInBits, k uint64, err error) {
	if expectedItems == 0 {
		return 0, 0, fmt.Errorf("%w: expected items must be positive", ErrInvalidParameters)
	}
	// Written so that NaN fails too.
	if !(fpRate > 0 && fpRate < 1) {
		return 0, 0, fmt.Errorf("%w: false positive rate %v not in (0, 1)", ErrInvalidParameters, fpRate)
	}

	n := float64(expectedItems)
	bits := math.Floor(-n * math.Log(fpRate) / ln2Squared)
	if bits > float64(maxSizeInBits) {
		return 0, 0, fmt.Errorf("%w: %d items at rate %v needs more than %d bits",
			ErrInvalidParameters, expectedItems, fpRate, maxSizeInBits)
	}

	// Round up to a whole byte
	sizeInBits = (uint64(bits) + 7) &^ 7
	if sizeInBits == 0 {
		return 0, 0, fmt.Errorf("%w: %d items at rate %v yields an empty bit array",
			ErrInvalidParameters, expectedItems, fpRate)
	}

	k = uint64(math.Round(float64(sizeInBits) / n * ln2))
	k = max(k, 1)

	return sizeInBits, k, nil
}

// EstimateFalsePositiveRate estimates the false positive rate of a filter of
// sizeInBits bits using k hash applications after itemsAdded distinct items.
// Formula: (1 - e^(-kn/m))^k
func EstimateFalsePositiveRate(sizeInBits, k uint64, itemsAdded float64) float64 {
	m := float64(sizeInBits)
	kf := float64(k)

	if m == 0 || itemsAdded <= 0 {
		return 0
	}

	return math.Pow(1-math.Exp(-kf*itemsAdded/m), kf)
}
