package services

import (
	"math"

	"homematch/models"
)

// Combine merges two users' preference sets under mode. A nil side means the
// user never saved preferences. Combine is pure: it performs no I/O and never
// fails, even when a strict merge yields a range whose lower bound exceeds
// its upper bound.
func Combine(a, b *models.PreferenceSet, mode models.CombineMode) models.PreferenceSet {
	switch {
	case a == nil && b == nil:
		return models.PreferenceSet{Criteria: models.Criteria{OfferType: models.OfferTypeBuy}}
	case b == nil:
		return cloneSet(*a)
	case a == nil:
		return cloneSet(*b)
	}

	ca, cb := a.Criteria, b.Criteria
	wa, wb := a.Weights, b.Weights
	var out models.PreferenceSet

	out.Criteria.OfferType = ca.OfferType
	if out.Criteria.OfferType == "" {
		out.Criteria.OfferType = cb.OfferType
	}

	out.Criteria.Location, out.Weights.Location = mergeScalar(ca.Location, wa.Location, cb.Location, wb.Location)

	price := mergeRange(
		rangeSide{ca.PriceFrom, ca.PriceTo, wa.PriceFrom, wa.PriceTo},
		rangeSide{cb.PriceFrom, cb.PriceTo, wb.PriceFrom, wb.PriceTo}, mode)
	out.Criteria.PriceFrom, out.Criteria.PriceTo = price.from, price.to
	out.Weights.PriceFrom, out.Weights.PriceTo = price.fromWeight, price.toWeight

	rooms := mergeRange(
		rangeSide{ca.RoomsFrom, ca.RoomsTo, wa.RoomsFrom, wa.RoomsTo},
		rangeSide{cb.RoomsFrom, cb.RoomsTo, wb.RoomsFrom, wb.RoomsTo}, mode)
	out.Criteria.RoomsFrom, out.Criteria.RoomsTo = rooms.from, rooms.to
	out.Weights.RoomsFrom, out.Weights.RoomsTo = rooms.fromWeight, rooms.toWeight

	space := mergeRange(
		rangeSide{ca.LivingSpaceFrom, ca.LivingSpaceTo, wa.LivingSpaceFrom, wa.LivingSpaceTo},
		rangeSide{cb.LivingSpaceFrom, cb.LivingSpaceTo, wb.LivingSpaceFrom, wb.LivingSpaceTo}, mode)
	out.Criteria.LivingSpaceFrom, out.Criteria.LivingSpaceTo = space.from, space.to
	out.Weights.LivingSpaceFrom, out.Weights.LivingSpaceTo = space.fromWeight, space.toWeight

	out.Criteria.Radius, out.Weights.Radius = mergeRadius(ca.Radius, wa.Radius, cb.Radius, wb.Radius, mode)
	out.Criteria.Features, out.Weights.Features = mergeFeatures(ca.Features, wa.Features, cb.Features, wb.Features, mode)
	out.Criteria.OnlyWithPrice, out.Weights.OnlyWithPrice = mergeFlag(ca.OnlyWithPrice, wa.OnlyWithPrice, cb.OnlyWithPrice, wb.OnlyWithPrice)
	out.Criteria.FreeText, out.Weights.FreeText = mergeText(ca.FreeText, wa.FreeText, cb.FreeText, wb.FreeText)

	return out
}

// mergeScalar keeps the value whose side weighted it higher; ties go to a.
func mergeScalar(a *string, wa *int, b *string, wb *int) (*string, *int) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case b == nil:
		return clonePtr(a), clonePtr(wa)
	case a == nil:
		return clonePtr(b), clonePtr(wb)
	}
	if weightOf(wb) > weightOf(wa) {
		return clonePtr(b), maxWeight(wa, wb)
	}
	return clonePtr(a), maxWeight(wa, wb)
}

type rangeSide struct {
	from, to             *float64
	fromWeight, toWeight *int
}

func (r rangeSide) present() bool { return r.from != nil || r.to != nil }

// lower and upper fill open bounds with 0 and +Inf.
func (r rangeSide) lower() float64 {
	if r.from == nil {
		return 0
	}
	return *r.from
}

func (r rangeSide) upper() float64 {
	if r.to == nil {
		return math.Inf(1)
	}
	return *r.to
}

func (r rangeSide) clone() rangeSide {
	return rangeSide{clonePtr(r.from), clonePtr(r.to), clonePtr(r.fromWeight), clonePtr(r.toWeight)}
}

func mergeRange(a, b rangeSide, mode models.CombineMode) rangeSide {
	switch {
	case !a.present() && !b.present():
		return rangeSide{}
	case !b.present():
		return a.clone()
	case !a.present():
		return b.clone()
	}

	la, lb := a.lower(), b.lower()
	ua, ub := a.upper(), b.upper()

	var lo, hi float64
	switch mode {
	case models.CombineStrict:
		lo, hi = math.Max(la, lb), math.Min(ua, ub)
	case models.CombineMixed:
		lo = clamp(math.Round((la+lb)/2), math.Min(la, lb), math.Max(la, lb))
		switch {
		case math.IsInf(ua, 1) && math.IsInf(ub, 1):
			hi = math.Inf(1)
		case math.IsInf(ua, 1):
			hi = ub
		case math.IsInf(ub, 1):
			hi = ua
		default:
			hi = (ua + ub) / 2
		}
	default:
		lo, hi = math.Min(la, lb), math.Max(ua, ub)
	}

	var out rangeSide
	if lo != 0 {
		out.from = &lo
		out.fromWeight = maxWeight(a.fromWeight, b.fromWeight)
	}
	if !math.IsInf(hi, 1) {
		out.to = &hi
		out.toWeight = maxWeight(a.toWeight, b.toWeight)
	}
	return out
}

// mergeRadius treats the radius as a single bound: all widens, strict
// narrows, mixed averages.
func mergeRadius(a *float64, wa *int, b *float64, wb *int, mode models.CombineMode) (*float64, *int) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case b == nil:
		return clonePtr(a), clonePtr(wa)
	case a == nil:
		return clonePtr(b), clonePtr(wb)
	}
	var r float64
	switch mode {
	case models.CombineStrict:
		r = math.Min(*a, *b)
	case models.CombineMixed:
		r = clamp(math.Round((*a+*b)/2), math.Min(*a, *b), math.Max(*a, *b))
	default:
		r = math.Max(*a, *b)
	}
	return &r, maxWeight(wa, wb)
}

// mergeFeatures unions the feature lists for all and mixed and intersects
// them for strict. Order follows a, then b's additions.
func mergeFeatures(a []string, wa *int, b []string, wb *int, mode models.CombineMode) ([]string, *int) {
	switch {
	case len(a) == 0 && len(b) == 0:
		return nil, nil
	case len(b) == 0:
		return cloneSlice(a), clonePtr(wa)
	case len(a) == 0:
		return cloneSlice(b), clonePtr(wb)
	}

	inB := make(map[string]bool, len(b))
	for _, f := range b {
		inB[f] = true
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, f := range a {
		if seen[f] {
			continue
		}
		if mode == models.CombineStrict && !inB[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	if mode != models.CombineStrict {
		for _, f := range b {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, maxWeight(wa, wb)
}

func mergeFlag(a *bool, wa *int, b *bool, wb *int) (*bool, *int) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case b == nil:
		return clonePtr(a), clonePtr(wa)
	case a == nil:
		return clonePtr(b), clonePtr(wb)
	}
	v := *a || *b
	return &v, maxWeight(wa, wb)
}

// mergeText joins both fragments, a first.
func mergeText(a *string, wa *int, b *string, wb *int) (*string, *int) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case b == nil:
		return clonePtr(a), clonePtr(wa)
	case a == nil:
		return clonePtr(b), clonePtr(wb)
	}
	var v string
	switch {
	case *a == "":
		v = *b
	case *b == "":
		v = *a
	default:
		v = *a + " " + *b
	}
	return &v, maxWeight(wa, wb)
}

func weightOf(w *int) int {
	if w == nil {
		return 0
	}
	return *w
}

func maxWeight(a, b *int) *int {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return clonePtr(b)
	case b == nil:
		return clonePtr(a)
	}
	m := max(*a, *b)
	return &m
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneSet(s models.PreferenceSet) models.PreferenceSet {
	c, w := s.Criteria, s.Weights
	return models.PreferenceSet{
		Criteria: models.Criteria{
			OfferType:       c.OfferType,
			Location:        clonePtr(c.Location),
			PriceFrom:       clonePtr(c.PriceFrom),
			PriceTo:         clonePtr(c.PriceTo),
			RoomsFrom:       clonePtr(c.RoomsFrom),
			RoomsTo:         clonePtr(c.RoomsTo),
			LivingSpaceFrom: clonePtr(c.LivingSpaceFrom),
			LivingSpaceTo:   clonePtr(c.LivingSpaceTo),
			Radius:          clonePtr(c.Radius),
			Features:        cloneSlice(c.Features),
			OnlyWithPrice:   clonePtr(c.OnlyWithPrice),
			FreeText:        clonePtr(c.FreeText),
		},
		Weights: models.Weights{
			Location:        clonePtr(w.Location),
			PriceFrom:       clonePtr(w.PriceFrom),
			PriceTo:         clonePtr(w.PriceTo),
			RoomsFrom:       clonePtr(w.RoomsFrom),
			RoomsTo:         clonePtr(w.RoomsTo),
			LivingSpaceFrom: clonePtr(w.LivingSpaceFrom),
			LivingSpaceTo:   clonePtr(w.LivingSpaceTo),
			Radius:          clonePtr(w.Radius),
			Features:        clonePtr(w.Features),
			OnlyWithPrice:   clonePtr(w.OnlyWithPrice),
			FreeText:        clonePtr(w.FreeText),
		},
	}
}
