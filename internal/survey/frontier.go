package survey

import "github.com/nao1215/overlaysurvey/internal/model"

// NextFrontier returns the ids to survey in the next round: reported ids
// never dispatched before, in report order, followed by every node whose
// report is still incomplete, sorted. Incomplete nodes are retried each
// round regardless of the sent set, with no limit.
func NextFrontier(reported, sent *model.IDSet, states model.SurveyStates) *model.IDSet {
	next := model.NewIDSet()
	for _, id := range reported.IDs() {
		if !sent.Has(id) {
			next.Add(id)
		}
	}
	for _, id := range states.Incomplete() {
		next.Add(id)
	}
	return next
}
