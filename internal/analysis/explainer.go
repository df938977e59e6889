package analysis

import "sort"

const (
	// BaselineImportance is assigned to a feature whose rule did not fire
	BaselineImportance = 0.05
	TopFeatureCount    = 3

	NormalRangeExplanation = "All parameters are within normal operating ranges"
)

// Rule is the single threshold check applied to one feature
type Rule struct {
	Feature    Feature `json:"feature"`
	Operator   string  `json:"operator"`
	Threshold  float64 `json:"threshold"`
	Importance float64 `json:"importance"`
	Reason     string  `json:"reason"`
}

// Breached reports whether v trips the rule. Comparisons are strict.
func (r Rule) Breached(v float64) bool {
	if r.Operator == "<" {
		return v < r.Threshold
	}
	return v > r.Threshold
}

// Rules is the attribution table, one rule per feature in declaration order
var Rules = []Rule{
	{Feature: Temperature, Operator: ">", Threshold: 80, Importance: 0.30, Reason: "High temperature may cause thermal stress"},
	{Feature: Pressure, Operator: ">", Threshold: 40, Importance: 0.25, Reason: "High pressure increases deviation risk"},
	{Feature: ProcessDuration, Operator: ">", Threshold: 90, Importance: 0.20, Reason: "Extended process duration impacts quality"},
	{Feature: MaterialQuality, Operator: "<", Threshold: 0.8, Importance: 0.15, Reason: "Low material quality reduces batch stability"},
	{Feature: MachineLoad, Operator: ">", Threshold: 75, Importance: 0.10, Reason: "High machine load stresses equipment"},
}

// Explain runs every rule against fv and ranks the resulting attributions
func Explain(fv FeatureVector) Explanation {
	attributions := make([]Attribution, 0, len(Rules))
	explanations := make([]string, 0, len(Rules))

	for _, rule := range Rules {
		value, _ := fv.Value(rule.Feature)
		attr := Attribution{Feature: rule.Feature, Importance: BaselineImportance}
		if rule.Breached(value) {
			attr.Importance = rule.Importance
			attr.Triggered = true
			attr.Reason = rule.Reason
			explanations = append(explanations, rule.Reason)
		}
		attributions = append(attributions, attr)
	}

	if len(explanations) == 0 {
		explanations = append(explanations, NormalRangeExplanation)
	}

	return Explanation{
		Explanations: explanations,
		Attributions: attributions,
		TopFeatures:  TopFeatures(attributions, TopFeatureCount),
	}
}

// TopFeatures returns up to n feature names by importance, highest first.
// Equal importances keep their input order.
func TopFeatures(attributions []Attribution, n int) []Feature {
	ranked := RankAttributions(attributions)
	if n > len(ranked) {
		n = len(ranked)
	}

	top := make([]Feature, 0, n)
	for _, attr := range ranked[:n] {
		top = append(top, attr.Feature)
	}
	return top
}

// RankAttributions returns a copy sorted by importance descending
func RankAttributions(attributions []Attribution) []Attribution {
	ranked := append([]Attribution(nil), attributions...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Importance > ranked[j].Importance
	})
	return ranked
}

// BreachCount is the number of rules fv trips
func BreachCount(fv FeatureVector) int {
	count := 0
	for _, rule := range Rules {
		if value, _ := fv.Value(rule.Feature); rule.Breached(value) {
			count++
		}
	}
	return count
}
