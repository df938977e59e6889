package narrative

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

const (
	WhatIfDuration = "If process duration increases further while other parameters remain constant, " +
		"material degradation risk may increase in subsequent batches."
	WhatIfTemperature = "If operating temperature drifts upward, thermal stress could accumulate and " +
		"raise deviation risk over time."
	WhatIfGeneric = "If multiple parameters drift simultaneously, combined effects could " +
		"increase deviation risk despite current stability."

	ConfidenceNote = "This insight is generated from predictive and explainable model outputs " +
		"and is intended to support, not replace, engineering judgment."

	SystemPrompt = "Generate manufacturing risk insights."
)

// Request carries what the narrative needs from a scoring pass
type Request struct {
	RiskLevel   analysis.RiskLevel
	Probability float64
	TopFeatures []analysis.Feature
	Batch       analysis.FeatureVector
}

// WhatIf picks the scenario text. Duration is checked before temperature.
func WhatIf(top []analysis.Feature) string {
	switch {
	case containsFeature(top, analysis.ProcessDuration):
		return WhatIfDuration
	case containsFeature(top, analysis.Temperature):
		return WhatIfTemperature
	default:
		return WhatIfGeneric
	}
}

func containsFeature(features []analysis.Feature, f analysis.Feature) bool {
	for _, candidate := range features {
		if candidate == f {
			return true
		}
	}
	return false
}

// FormatScore rounds p to two decimals and prints at least one decimal place
func FormatScore(p float64) string {
	s := strconv.FormatFloat(math.Round(p*100)/100, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func featureText(top []analysis.Feature) string {
	names := make([]string, len(top))
	for i, f := range top {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func batchText(fv analysis.FeatureVector) string {
	values := fv.Values()
	parts := make([]string, len(analysis.Features))
	for i, f := range analysis.Features {
		parts[i] = fmt.Sprintf("%s: %s", f, strconv.FormatFloat(values[i], 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

// RiskNarrative is the first section of the template insight
func RiskNarrative(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This batch is classified as %s with a risk score of %s.", req.RiskLevel, FormatScore(req.Probability))

	if len(req.TopFeatures) > 0 {
		fmt.Fprintf(&b, " Key influencing parameters include %s", featureText(req.TopFeatures))
		if n := analysis.BreachCount(req.Batch); n == 0 {
			b.WriteString(", all of which are currently within acceptable operating ranges.")
		} else {
			fmt.Fprintf(&b, "; %d of %d parameters are outside their operating thresholds.", n, len(analysis.Features))
		}
	}
	return b.String()
}

// BuildPrompt renders the text generation prompt for req
func BuildPrompt(req Request) string {
	return fmt.Sprintf(`You are a senior manufacturing quality engineer.

Batch classification: %s
Risk score: %s

Key influencing parameters:
%s

Batch parameters:
%s

Generate:
1. A short risk narrative explaining the current batch state
2. A what-if scenario describing how risk could change if conditions worsen
3. A confidence note clarifying AI's advisory role

Keep the response concise, professional, and factual.
`, req.RiskLevel, FormatScore(req.Probability), featureText(req.TopFeatures), batchText(req.Batch))
}

// FallbackText is returned when a delegated generation fails
func FallbackText(req Request) string {
	return fmt.Sprintf("This batch is classified as %s with a risk score of %s. "+
		"Monitoring key parameters is recommended. "+
		"AI insight generation encountered a temporary issue.",
		req.RiskLevel, FormatScore(req.Probability))
}

func composeSections(narrative, whatIf, note string) string {
	return "**AI Risk Narrative**\n\n" + narrative +
		"\n\n**AI What-If Analysis**\n\n" + whatIf +
		"\n\n**AI Confidence Note**\n\n" + note
}
