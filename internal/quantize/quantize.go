// Package quantize chooses the scale factor used to store floating point
// rasters as scaled integers.
package quantize

import (
	"io"
	"math"
)

// Block is one chunk of band data. Missing samples are NaN and are ignored;
// a block that is entirely NaN contributes nothing.
type Block struct {
	Values []float64
}

// Source yields band data block by block and returns io.EOF when exhausted.
type Source interface {
	NextBlock() (Block, error)
}

// maxInvScaleFactor caps the preserved decimals. A value like 2.73926e-8
// stops at this factor and loses digits beyond the tenth decimal.
const maxInvScaleFactor = 10000000000

// extraPrecision is how many digits past the first significant digit are
// preserved. 0.039859812 keeps 0.0398598 while 0.950000000001 keeps 0.95.
const extraPrecision = 1e-5

// ComputeInvScaleFactor estimates the significant digits of the data and
// returns the smallest power-of-ten inverse scale factor that preserves
// them, together with the value range over all blocks. Integer data yields
// factor 1. The range is (+Inf, -Inf) when every sample is missing.
func ComputeInvScaleFactor(blocks Source) (invScaleFactor int64, min, max float64, err error) {
	invScaleFactor = 1
	magMax := -orderOfMagnitude(maxInvScaleFactor)
	min = math.Inf(1)
	max = math.Inf(-1)

	for {
		block, err := blocks.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, 0, err
		}
		blockMin, blockMax, ok := rangeOf(block.Values)
		if !ok {
			continue
		}
		min = math.Min(min, blockMin)
		max = math.Max(max, blockMax)

		mag := orderOfMagnitude(math.Max(math.Abs(blockMin), math.Abs(blockMax)))
		if mag > magMax {
			magMax = mag
			invScaleFactor = 1
		}
		targetPrecision := math.Max(math.Pow(10, float64(magMax))*extraPrecision, 1.0/maxInvScaleFactor)

		blockFactor := int64(1)
		decimals := 0
		for maxRoundingError(block.Values, decimals) > targetPrecision {
			blockFactor *= 10
			decimals++
		}
		if blockFactor > invScaleFactor {
			invScaleFactor = blockFactor
		}
	}
	return invScaleFactor, min, max, nil
}

func orderOfMagnitude(x float64) int {
	if x == 0 {
		return 0
	}
	return int(math.Floor(math.Log10(x)))
}

func rangeOf(vals []float64) (min, max float64, ok bool) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

// maxRoundingError returns the largest error introduced by rounding the
// block to the given number of decimals.
func maxRoundingError(vals []float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	worst := 0.0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		diff := math.Abs(v - math.Round(v*pow)/pow)
		if diff > worst {
			worst = diff
		}
	}
	return worst
}

// SliceSource adapts in-memory blocks to a Source.
type SliceSource struct {
	Blocks [][]float64
	next   int
}

func (s *SliceSource) NextBlock() (Block, error) {
	if s.next >= len(s.Blocks) {
		return Block{}, io.EOF
	}
	b := Block{Values: s.Blocks[s.next]}
	s.next++
	return b, nil
}
