package types

// Priority ranks strategic suggestions.
type Priority string

const (
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Recommendation is the qualitative verdict of an attack preview.
type Recommendation string

const (
	RecommendGo    Recommendation = "GO!"
	RecommendRisky Recommendation = "RISKY"
	RecommendAvoid Recommendation = "AVOID"
)
