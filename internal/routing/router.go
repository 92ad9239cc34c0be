package routing

import "github.com/tinkerloft/triage/internal/model"

// Route maps a scored task to a disposition using the configured
// confidence thresholds. It is pure: identical input always produces the
// identical disposition, and nothing is written anywhere.
func Route(scores []model.DomainScore, confidence float64, th model.Thresholds) model.Disposition {
	if len(scores) == 0 {
		return model.Disposition{Action: model.ActionManualReview}
	}

	d := model.Disposition{DomainID: scores[Recommend(scores)].DomainID}
	switch {
	case confidence >= th.High:
		d.Action = model.ActionAutoAssign
	case confidence >= th.Medium:
		d.Action = model.ActionHold
	default:
		d.Action = model.ActionManualReview
	}
	return d
}
