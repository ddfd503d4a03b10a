package searcher

import "math"

// uct scores a child for selection. q is its blended mean value.
func uct(q float64, virtualLoss, visits, parentVisits int64, c float64) float64 {
	v := 1 + float64(visits)
	return (q-float64(virtualLoss))/v + c*math.Sqrt(math.Log(1+float64(parentVisits))/v)
}

// blend mixes current and archived statistics while the current epoch has
// fewer than a tenth of the archived visits. Values are accumulated totals.
func blend(cv int64, cValue float64, pv int64, pValue float64) float64 {
	cQ := 0.0
	if cv > 0 {
		cQ = cValue / float64(cv)
	}
	if pv > 0 && float64(cv) < float64(pv)/10 {
		pQ := pValue / float64(pv)
		alpha := float64(cv) / float64(pv+1)
		return alpha*cQ + (1-alpha)*pQ
	}
	return cQ
}
