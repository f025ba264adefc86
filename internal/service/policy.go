package service

import "time"

// Policy carries every tunable of the routing pipeline. It is passed to
// constructors explicitly; nothing in the pipeline reads the environment.
type Policy struct {
	UseAI             bool
	UseSmartFiltering bool
	AITimeout         time.Duration

	MaxCandidates      int
	RelevanceThreshold float64
	RegionalThreshold  int
	RescueMinimum      int

	ReconciledConfidenceFactor float64
	DeterministicConfidence    float64
	// FallbackIssue is looked up when the description yields no category; empty disables it.
	FallbackIssue string
}

func DefaultPolicy() Policy {
	return Policy{
		UseAI:                      false,
		UseSmartFiltering:          true,
		AITimeout:                  30 * time.Second,
		MaxCandidates:              15,
		RelevanceThreshold:         0.3,
		RegionalThreshold:          10,
		RescueMinimum:              5,
		ReconciledConfidenceFactor: 0.8,
		DeterministicConfidence:    0.85,
		FallbackIssue:              "general",
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = d.MaxCandidates
	}
	if p.RelevanceThreshold <= 0 {
		p.RelevanceThreshold = d.RelevanceThreshold
	}
	if p.RegionalThreshold <= 0 {
		p.RegionalThreshold = d.RegionalThreshold
	}
	if p.RescueMinimum <= 0 {
		p.RescueMinimum = d.RescueMinimum
	}
	if p.ReconciledConfidenceFactor <= 0 {
		p.ReconciledConfidenceFactor = d.ReconciledConfidenceFactor
	}
	if p.DeterministicConfidence <= 0 {
		p.DeterministicConfidence = d.DeterministicConfidence
	}
	if p.AITimeout <= 0 {
		p.AITimeout = d.AITimeout
	}
	return p
}
