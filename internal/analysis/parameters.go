package analysis

// ParameterRange describes the manual input control for one feature
type ParameterRange struct {
	Feature Feature `json:"feature"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// ParameterRanges are advisory bounds for manual entry. Scoring does not
// enforce them.
var ParameterRanges = []ParameterRange{
	{Feature: Temperature, Min: 40, Max: 100, Default: 70},
	{Feature: Pressure, Min: 20, Max: 50, Default: 30},
	{Feature: ProcessDuration, Min: 30, Max: 120, Default: 60},
	{Feature: MaterialQuality, Min: 0.6, Max: 1.0, Default: 0.9},
	{Feature: MachineLoad, Min: 30, Max: 100, Default: 60},
}

// DefaultFeatureVector is the batch formed by every range default
func DefaultFeatureVector() FeatureVector {
	return FeatureVector{
		Temperature:     70,
		Pressure:        30,
		ProcessDuration: 60,
		MaterialQuality: 0.9,
		MachineLoad:     60,
	}
}
