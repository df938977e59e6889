package analysis

var actions = map[Feature]string{
	Temperature:     "Reduce process temperature",
	Pressure:        "Lower system pressure",
	ProcessDuration: "Optimize process duration",
	MaterialQuality: "Perform material quality inspection",
	MachineLoad:     "Reduce machine load",
}

// Recommend maps ranked features to corrective actions, keeping their order.
// Features without an action are skipped and repeats produce one action.
func Recommend(features []Feature) []string {
	recs := make([]string, 0, len(features))
	seen := make(map[Feature]bool, len(features))

	for _, f := range features {
		action, ok := actions[f]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		recs = append(recs, action)
	}
	return recs
}
