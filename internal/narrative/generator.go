package narrative

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/batchmind/internal/cache"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
)

const DefaultTimeout = 20 * time.Second

// Source tells where an insight's text came from
type Source string

const (
	SourceTemplate Source = "template"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Insight is the structured risk report shown with every assessment
type Insight struct {
	Source         Source      `json:"source"`
	Narrative      string      `json:"narrative"`
	WhatIf         string      `json:"what_if,omitempty"`
	ConfidenceNote string      `json:"confidence_note,omitempty"`
	Text           string      `json:"text"`
	Failure        FailureKind `json:"failure,omitempty"`
	Cached         bool        `json:"cached,omitempty"`
}

// TextGenerator is an external free text generation service
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Options wires optional infrastructure around the text generator
type Options struct {
	Timeout     time.Duration
	Cache       *cache.Cache
	Breaker     *resilience.CircuitBreaker
	Degradation *resilience.DegradationManager
	Metrics     *monitoring.Metrics
	Logger      *monitoring.Logger
}

// Generator composes insights. With a nil client every insight comes from
// the template; otherwise the client is tried once per pass and any failure
// yields the fallback summary.
type Generator struct {
	client TextGenerator
	opts   Options
}

func NewGenerator(client TextGenerator, opts Options) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = &monitoring.Logger{Logger: slog.Default()}
	}
	return &Generator{client: client, opts: opts}
}

// Delegating reports whether insights are sent to the external generator
func (g *Generator) Delegating() bool { return g.client != nil }

// Generate always returns an insight; generation errors never escape
func (g *Generator) Generate(ctx context.Context, req Request) Insight {
	whatIf := WhatIf(req.TopFeatures)

	if g.client == nil {
		narrative := RiskNarrative(req)
		return g.finish(Insight{
			Source:         SourceTemplate,
			Narrative:      narrative,
			WhatIf:         whatIf,
			ConfidenceNote: ConfidenceNote,
			Text:           composeSections(narrative, whatIf, ConfidenceNote),
		}, 0)
	}

	prompt := BuildPrompt(req)
	key := cache.Key(g.client.Name(), prompt)

	if g.opts.Cache != nil {
		text, hit := g.opts.Cache.Get(key)
		if g.opts.Metrics != nil {
			g.opts.Metrics.IncrementNarrativeCache(hit)
		}
		if hit {
			insight := delegated(text, whatIf)
			insight.Cached = true
			return g.finish(insight, 0)
		}
	}

	start := time.Now()
	result := g.attempt(ctx, prompt)
	elapsed := time.Since(start)

	switch result.Failure {
	case FailureNone:
		if g.opts.Cache != nil {
			g.opts.Cache.Set(key, result.Text)
		}
		return g.finish(delegated(result.Text, whatIf), elapsed)
	default:
		fallback := FallbackText(req)
		return g.finish(Insight{
			Source:    SourceFallback,
			Narrative: fallback,
			Text:      fallback,
			Failure:   result.Failure,
		}, elapsed)
	}
}

func delegated(text, whatIf string) Insight {
	return Insight{
		Source:         SourceLLM,
		Narrative:      text,
		WhatIf:         whatIf,
		ConfidenceNote: ConfidenceNote,
		Text:           text,
	}
}

// attempt performs the single external call and resolves it into an Attempt
func (g *Generator) attempt(ctx context.Context, prompt string) Attempt {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var text string
	call := func() error {
		out, err := g.client.Generate(callCtx, SystemPrompt, prompt)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(out)
		if text == "" {
			return ErrMalformedResponse
		}
		return nil
	}

	start := time.Now()
	var err error
	if g.opts.Breaker != nil {
		err = g.opts.Breaker.Call(call)
	} else {
		err = call()
	}
	duration := time.Since(start)

	result := succeeded(text)
	if err != nil {
		result = failed(err)
	}
	g.record(result, duration)
	return result
}

func (g *Generator) record(result Attempt, duration time.Duration) {
	name := g.client.Name()
	g.opts.Logger.ExternalAPILogger(name, "chat_completion", duration, result.OK(), string(result.Failure))
	if result.Err != nil {
		g.opts.Logger.Debug("text generation error", "api_name", name, "error", result.Err)
	}

	// a short-circuited call never reached the service
	if result.Failure == FailureUnavailable {
		return
	}

	if g.opts.Metrics != nil {
		g.opts.Metrics.RecordExternalAPIRequest(name, result.OK())
	}
	if g.opts.Degradation != nil {
		if result.OK() {
			g.opts.Degradation.RecordRequest(resilience.ServiceTextGenerator, true)
		} else {
			g.opts.Degradation.RecordError(resilience.ServiceTextGenerator, result.Err)
		}
	}
}

func (g *Generator) finish(insight Insight, elapsed time.Duration) Insight {
	if g.opts.Metrics != nil {
		g.opts.Metrics.RecordNarrative(string(insight.Source))
	}
	monitoring.ObserveNarrative(string(insight.Source), string(insight.Failure), elapsed)
	return insight
}
