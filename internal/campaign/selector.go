package campaign

// defaultTotalWeight is used when no variant carries a positive weight.
const defaultTotalWeight = 100

// TotalWeight sums the positive variant weights, or returns 100 when none is
// positive.
func TotalWeight(variants []Variant) int {
	total := 0
	for _, v := range variants {
		if v.Weight > 0 {
			total += v.Weight
		}
	}
	if total <= 0 {
		return defaultTotalWeight
	}
	return total
}

// Selector assigns variants to recipients by position. The assignment is a
// cyclic weighted walk, not a shuffle: the same recipient order and variant
// list always yield the same assignment.
type Selector struct {
	variants []Variant
	total    int
}

func NewSelector(variants []Variant) *Selector {
	return &Selector{variants: variants, total: TotalWeight(variants)}
}

// Pick returns the variant for the recipient at zero-based position i, or nil
// when there are no variants.
func (s *Selector) Pick(i int) *Variant {
	if len(s.variants) == 0 {
		return nil
	}
	cursor := i % s.total
	if cursor < 0 {
		cursor += s.total
	}
	acc := 0
	for k := range s.variants {
		w := s.variants[k].Weight
		if w <= 0 {
			continue
		}
		acc += w
		if acc > cursor {
			return &s.variants[k]
		}
	}
	return &s.variants[0]
}
