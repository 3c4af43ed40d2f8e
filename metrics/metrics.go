// Package metrics exposes the Prometheus collectors for the generation
// pipeline. Registration happens at import time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMCalls counts model calls by outcome (ok, error, blocked).
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtm_llm_calls_total",
		Help: "LLM calls by outcome",
	}, []string{"outcome"})

	// Generations counts draft-generation runs by verdict mode and outcome.
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtm_generations_total",
		Help: "Draft generation runs by verdict mode and outcome",
	}, []string{"mode", "outcome"})

	// ValidationFailures counts terminal validation-gate rejections.
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtm_validation_failures_total",
		Help: "Generation runs blocked by the validation gate after repair",
	})

	// RepairAttempts counts bounded repair calls issued.
	RepairAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtm_repair_attempts_total",
		Help: "Bounded LLM repair attempts",
	})
)
