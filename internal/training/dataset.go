package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
)

const (
	DefaultSamples = 1000
	DefaultSeed    = 42

	labelColumn = "deviation"
)

// LabelRule decides whether a synthetic batch is labelled as a deviation
type LabelRule string

const (
	// BreachCount labels a batch when three or more of the explainer thresholds are breached
	BreachCount LabelRule = "breach-count"
	// AnyBreach labels a batch when any of its own, slightly looser, thresholds is breached
	AnyBreach LabelRule = "any-breach"
)

// ParseLabelRule accepts the CLI spelling of a rule
func ParseLabelRule(s string) (LabelRule, error) {
	switch LabelRule(s) {
	case BreachCount, AnyBreach:
		return LabelRule(s), nil
	case "":
		return BreachCount, nil
	}
	return "", fmt.Errorf("unknown label rule %q (want %s or %s)", s, BreachCount, AnyBreach)
}

// Label applies the rule to one batch
func (r LabelRule) Label(fv analysis.FeatureVector) int {
	switch r {
	case AnyBreach:
		if fv.Temperature > 85 || fv.Pressure > 40 || fv.ProcessDuration > 90 ||
			fv.MaterialQuality < 0.8 || fv.MachineLoad > 80 {
			return 1
		}
		return 0
	default:
		if analysis.BreachCount(fv) >= 3 {
			return 1
		}
		return 0
	}
}

// Sample is one labelled batch
type Sample struct {
	Batch analysis.FeatureVector
	Label int
}

// Dataset is an ordered collection of samples
type Dataset []Sample

// Rows returns the feature matrix in analysis.Features column order
func (d Dataset) Rows() [][]float64 {
	rows := make([][]float64, len(d))
	for i, s := range d {
		rows[i] = s.Batch.Values()
	}
	return rows
}

func (d Dataset) Labels() []int {
	labels := make([]int, len(d))
	for i, s := range d {
		labels[i] = s.Label
	}
	return labels
}

// Positives counts samples labelled 1
func (d Dataset) Positives() int {
	n := 0
	for _, s := range d {
		n += s.Label
	}
	return n
}

// Generate draws n synthetic batches from the training distributions
func Generate(sampler *simulator.Sampler, n int, rule LabelRule) Dataset {
	ds := make(Dataset, n)
	for i := range ds {
		fv := analysis.FeatureVector{
			Temperature:     sampler.Normal(70, 10),
			Pressure:        sampler.Normal(30, 5),
			ProcessDuration: sampler.Normal(60, 15),
			MaterialQuality: sampler.Uniform(0.7, 1.0),
			MachineLoad:     sampler.Uniform(40, 90),
		}
		ds[i] = Sample{Batch: fv, Label: rule.Label(fv)}
	}
	return ds
}

// Split shuffles the dataset and holds out testFraction of it
func Split(d Dataset, sampler *simulator.Sampler, testFraction float64) (train, test Dataset) {
	nTest := int(math.Round(float64(len(d)) * testFraction))
	perm := sampler.Perm(len(d))

	test = make(Dataset, 0, nTest)
	train = make(Dataset, 0, len(d)-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, d[idx])
		} else {
			train = append(train, d[idx])
		}
	}
	return train, test
}

func header() []string {
	cols := make([]string, 0, len(analysis.Features)+1)
	for _, f := range analysis.Features {
		cols = append(cols, string(f))
	}
	return append(cols, labelColumn)
}

// WriteCSV writes the dataset with a header row
func WriteCSV(w io.Writer, d Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(analysis.Features)+1)
	for _, s := range d {
		for j, v := range s.Batch.Values() {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = strconv.Itoa(s.Label)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a dataset written by WriteCSV. The header must match exactly.
func ReadCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(analysis.Features) + 1

	want := header()
	got, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range want {
		if got[i] != want[i] {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, got[i], want[i])
		}
	}

	var ds Dataset
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(analysis.Features))
		for j := range row {
			if row[j], err = strconv.ParseFloat(record[j], 64); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, want[j], err)
			}
		}
		fv, err := analysis.FeatureVectorFromValues(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		label, err := strconv.Atoi(record[len(record)-1])
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("line %d: label must be 0 or 1, got %q", line, record[len(record)-1])
		}
		ds = append(ds, Sample{Batch: fv, Label: label})
	}
	return ds, nil
}
