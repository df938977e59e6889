package analysis

// Feature names one of the five batch process parameters
type Feature string

const (
	Temperature     Feature = "temperature"
	Pressure        Feature = "pressure"
	ProcessDuration Feature = "process_duration"
	MaterialQuality Feature = "material_quality"
	MachineLoad     Feature = "machine_load"
)

// Features lists every feature in declaration order. Attribution tables,
// scaler columns and tie breaks all follow this order.
var Features = []Feature{Temperature, Pressure, ProcessDuration, MaterialQuality, MachineLoad}

// FeatureVector is the input record for a single scoring pass
type FeatureVector struct {
	Temperature     float64 `json:"temperature" yaml:"temperature" validate:"finite"`
	Pressure        float64 `json:"pressure" yaml:"pressure" validate:"finite"`
	ProcessDuration float64 `json:"process_duration" yaml:"process_duration" validate:"finite"`
	MaterialQuality float64 `json:"material_quality" yaml:"material_quality" validate:"finite"`
	MachineLoad     float64 `json:"machine_load" yaml:"machine_load" validate:"finite"`
}

// Value returns the value of a single feature, and false for an unknown name
func (fv FeatureVector) Value(f Feature) (float64, bool) {
	switch f {
	case Temperature:
		return fv.Temperature, true
	case Pressure:
		return fv.Pressure, true
	case ProcessDuration:
		return fv.ProcessDuration, true
	case MaterialQuality:
		return fv.MaterialQuality, true
	case MachineLoad:
		return fv.MachineLoad, true
	}
	return 0, false
}

// Values returns the features as a row in declaration order
func (fv FeatureVector) Values() []float64 {
	return []float64{fv.Temperature, fv.Pressure, fv.ProcessDuration, fv.MaterialQuality, fv.MachineLoad}
}

// FeatureVectorFromValues is the inverse of Values
func FeatureVectorFromValues(row []float64) (FeatureVector, error) {
	if len(row) != len(Features) {
		return FeatureVector{}, errDimension(len(row))
	}
	return NewFeatureVector(row[0], row[1], row[2], row[3], row[4])
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

type Severity string

const (
	SeverityMonitor         Severity = "MONITOR"
	SeverityActSoon         Severity = "ACT_SOON"
	SeverityImmediateAction Severity = "IMMEDIATE_ACTION"
)

// Label is the operator facing wording of the severity tier
func (s Severity) Label() string {
	switch s {
	case SeverityActSoon:
		return "ACT SOON"
	case SeverityImmediateAction:
		return "IMMEDIATE ACTION"
	default:
		return string(s)
	}
}

// Attribution is one row of the feature attribution table
type Attribution struct {
	Feature    Feature `json:"feature"`
	Importance float64 `json:"importance"`
	Triggered  bool    `json:"triggered"`
	Reason     string  `json:"reason,omitempty"`
}

// Explanation is the output of the rule based explainer
type Explanation struct {
	Explanations []string      `json:"explanations"`
	Attributions []Attribution `json:"attributions"`
	TopFeatures  []Feature     `json:"top_features"`
}

// RiskAssessment holds the probability and everything derived from it
type RiskAssessment struct {
	Probability  float64   `json:"probability"`
	RiskLevel    RiskLevel `json:"risk_level"`
	ExpectedLoss float64   `json:"expected_loss"`
	Severity     Severity  `json:"severity"`
	Alert        bool      `json:"alert"`
}

// Assessment is the deterministic result of one scoring pass
type Assessment struct {
	Model           string         `json:"model"`
	Risk            RiskAssessment `json:"risk"`
	Explanation     Explanation    `json:"explanation"`
	Recommendations []string       `json:"recommendations"`
}
