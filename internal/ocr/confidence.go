package ocr

import "math"

// scoreReceipt is a weighted sum of extraction signals, capped at 1. It is a
// heuristic score, not a calibrated probability.
func scoreReceipt(r *ParsedReceipt, dateFound bool) float64 {
	score := 0.0
	if r.Merchant != "" && r.Merchant != UnknownMerchant {
		score += 0.2
	}
	if dateFound {
		score += 0.1
	}
	if r.Total.IsPositive() {
		score += 0.3
	}
	if len(r.Items) > 0 {
		sum := 0.0
		for _, item := range r.Items {
			sum += item.Confidence
		}
		score += 0.2 + 0.2*(sum/float64(len(r.Items)))
	}
	return clampConfidence(score)
}

// clampConfidence bounds c to [0,1] and rounds it to 2 places
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return math.Round(c*100) / 100
}
