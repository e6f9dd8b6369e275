package orchestrate

// StageConfig carries the tunables S2 through S5 need beyond what
// travels in RepoConfig. Defaults match the values spec.md calls out
// explicitly ("default 5", "default 25", "more than 15").
type StageConfig struct {
	SecuritySensitiveGlobs []string
	FileLevelHunkThreshold int
	ModelConcurrency       int
	MaxFindings            int
	SynthesisTrimThreshold int
	LineOverlapTolerance   int
}

// DefaultStageConfig returns the spec's stated defaults.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		SecuritySensitiveGlobs: []string{
			"**/auth/**", "**/security/**", "**/crypto/**", "**/*secret*", "**/*credential*",
		},
		FileLevelHunkThreshold: 6,
		ModelConcurrency:       5,
		MaxFindings:            25,
		SynthesisTrimThreshold: 15,
		LineOverlapTolerance:   3,
	}
}
