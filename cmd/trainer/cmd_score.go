package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/narrative"
)

type scoreOutput struct {
	Batch      analysis.FeatureVector `json:"batch"`
	Assessment analysis.Assessment    `json:"assessment"`
	Insight    narrative.Insight      `json:"insight"`
}

func newScoreCmd() *cobra.Command {
	var (
		modelDir  string
		threshold bool
		asJSON    bool
		fv        = analysis.DefaultFeatureVector()
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one batch with the trained model (or the threshold model)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var model analysis.Model = analysis.NewThresholdModel()
			if !threshold {
				loaded, err := analysis.NewArtifactStore(modelDir).LoadModel()
				if err != nil {
					return fmt.Errorf("load model (use --threshold to score without artifacts): %w", err)
				}
				model = loaded
			}

			assessment, err := analysis.NewAnalyzer(model).Assess(fv)
			if err != nil {
				return err
			}

			insight := narrative.NewGenerator(nil, narrative.Options{}).Generate(cmd.Context(), narrative.Request{
				RiskLevel:   assessment.Risk.RiskLevel,
				Probability: assessment.Risk.Probability,
				TopFeatures: assessment.Explanation.TopFeatures,
				Batch:       fv,
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(scoreOutput{Batch: fv, Assessment: assessment, Insight: insight})
			}

			risk := assessment.Risk
			fmt.Fprintf(out, "model          %s\n", assessment.Model)
			fmt.Fprintf(out, "probability    %s\n", narrative.FormatScore(risk.Probability))
			fmt.Fprintf(out, "risk level     %s\n", risk.RiskLevel)
			fmt.Fprintf(out, "expected loss  %d\n", int64(risk.ExpectedLoss))
			fmt.Fprintf(out, "severity       %s\n", risk.Severity.Label())
			if risk.Alert {
				fmt.Fprintf(out, "ALERT          %s\n", analysis.AlertMessage)
			}
			for _, e := range assessment.Explanation.Explanations {
				fmt.Fprintf(out, "  - %s\n", e)
			}
			for _, r := range assessment.Recommendations {
				fmt.Fprintf(out, "  * %s\n", r)
			}
			fmt.Fprintf(out, "\n%s\n", insight.Text)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&fv.Temperature, "temperature", fv.Temperature, "temperature")
	f.Float64Var(&fv.Pressure, "pressure", fv.Pressure, "pressure")
	f.Float64Var(&fv.ProcessDuration, "process-duration", fv.ProcessDuration, "process duration")
	f.Float64Var(&fv.MaterialQuality, "material-quality", fv.MaterialQuality, "material quality, 0-1")
	f.Float64Var(&fv.MachineLoad, "machine-load", fv.MachineLoad, "machine load")
	f.StringVar(&modelDir, "model-dir", "./models", "directory holding the model artifacts")
	f.BoolVar(&threshold, "threshold", false, "use the breach count model instead of trained artifacts")
	f.BoolVar(&asJSON, "json", false, "print the full assessment as JSON")
	return cmd
}
