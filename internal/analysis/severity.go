package analysis

import "fmt"

const (
	BatchValue     = 500000.0
	LossRate       = 0.20
	AlertThreshold = 50000.0

	mediumRiskFloor = 0.30
	highRiskFloor   = 0.60

	actSoonFloor   = 25000.0
	immediateFloor = 60000.0
)

// AlertMessage is shown whenever ShouldAlert is true
var AlertMessage = fmt.Sprintf("Expected financial loss exceeds %s. Immediate attention required.", formatThousands(int64(AlertThreshold)))

// ExpectedLoss is p × batch value × loss rate
func ExpectedLoss(p float64) float64 {
	return p * BatchValue * LossRate
}

// ClassifyRisk bands a probability into LOW [0,0.3), MEDIUM [0.3,0.6) and HIGH
func ClassifyRisk(p float64) RiskLevel {
	switch {
	case p < mediumRiskFloor:
		return RiskLow
	case p < highRiskFloor:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ClassifySeverity bands an expected loss into operational urgency tiers
func ClassifySeverity(loss float64) Severity {
	switch {
	case loss < actSoonFloor:
		return SeverityMonitor
	case loss < immediateFloor:
		return SeverityActSoon
	default:
		return SeverityImmediateAction
	}
}

// ShouldAlert is checked separately from severity: the alert line sits
// inside the ACT_SOON band.
func ShouldAlert(loss float64) bool {
	return loss >= AlertThreshold
}

// AssessRisk derives every risk metric from a probability
func AssessRisk(p float64) RiskAssessment {
	loss := ExpectedLoss(p)
	return RiskAssessment{
		Probability:  p,
		RiskLevel:    ClassifyRisk(p),
		ExpectedLoss: loss,
		Severity:     ClassifySeverity(loss),
		Alert:        ShouldAlert(loss),
	}
}

func formatThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
