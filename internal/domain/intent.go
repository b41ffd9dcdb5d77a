package domain

import "sort"

// Intent is one scored label returned by a classifier.
type Intent struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// IntentResult is the classifier output for one utterance. Entities maps an
// entity type to the ordered values found for it.
type IntentResult struct {
	Text     string              `json:"text"`
	Intents  []Intent            `json:"intents"`
	Entities map[string][]string `json:"entities"`
}

// TopIntent returns the highest-scoring intent, or false when there is none.
func (r *IntentResult) TopIntent() (Intent, bool) {
	if r == nil || len(r.Intents) == 0 {
		return Intent{}, false
	}
	top := r.Intents[0]
	for _, in := range r.Intents[1:] {
		if in.Score > top.Score {
			top = in
		}
	}
	return top, true
}

// SortIntents orders intents by descending score, keeping the original order on ties.
func SortIntents(intents []Intent) {
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].Score > intents[j].Score
	})
}
