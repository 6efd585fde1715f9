package stats

import (
	"math"
	"sort"
)

// Hotspot tiers. TierNoData marks tracts without a statistics row.
const (
	TierNoData = 0
	MaxTier    = 7
)

// HotspotPercentiles split tracts with data into tiers 1..7.
var HotspotPercentiles = []float64{0.25, 0.50, 0.75, 0.90, 0.95, 0.99}

// TierNames label each tier for legends.
var TierNames = [MaxTier + 1]string{
	"No Data",
	"Very Low (< 25%)",
	"Low (25% - 50%)",
	"Medium (50% - 75%)",
	"High (75% - 90%)",
	"Very High (90% - 95%)",
	"Extreme (95% - 99%)",
	"Highest (> 99%)",
}

// Quantile returns the q-quantile of values using linear interpolation
// between closest ranks (h = (n-1)q). values need not be sorted. It returns
// NaN for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return quantileSorted(s, q)
}

func quantileSorted(s []float64, q float64) float64 {
	switch {
	case q <= 0:
		return s[0]
	case q >= 1:
		return s[len(s)-1]
	}
	h := float64(len(s)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(s) {
		return s[i]
	}
	return s[i] + (h-lo)*(s[i+1]-s[i])
}

// Thresholds are the hotspot percentile cut points of a set of totals.
type Thresholds [6]float64

// HotspotThresholds computes the cut points over the totals of tracts with
// data. ok is false when totals is empty.
func HotspotThresholds(totals []int) (th Thresholds, ok bool) {
	if len(totals) == 0 {
		return th, false
	}
	s := make([]float64, len(totals))
	for i, v := range totals {
		s[i] = float64(v)
	}
	sort.Float64s(s)
	for i, q := range HotspotPercentiles {
		th[i] = quantileSorted(s, q)
	}
	return th, true
}

// Tier classifies a total: 1 for any tract with data, raised one level for
// every threshold the total strictly exceeds.
func (th Thresholds) Tier(total int) int {
	tier := 1
	for _, cut := range th {
		if float64(total) > cut {
			tier++
		}
	}
	return tier
}

// LowerBound returns the smallest total of a tier as shown in legends: 0 for
// tier 1, otherwise the threshold that must be exceeded to enter the tier.
func (th Thresholds) LowerBound(tier int) float64 {
	if tier <= 1 {
		return 0
	}
	if tier > MaxTier {
		tier = MaxTier
	}
	return th[tier-2]
}
