package services

// Limits bounds the Model service's pre-edit invariant checks (spec §4.7)
// and is also surfaced verbatim in the capabilities payload.
type Limits struct {
	MaxCubes            int
	MaxTextureSize      int
	MaxAnimationSeconds float64
}

// DefaultLimits mirrors typical Blockbench-class authoring ceilings.
func DefaultLimits() Limits {
	return Limits{MaxCubes: 4096, MaxTextureSize: 2048, MaxAnimationSeconds: 600}
}
