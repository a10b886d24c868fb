package rating

// Option applies a configuration option to the Engine. Values are stored
// as given; New rejects unusable ones through Config.Validate.
type Option func(*Config)

// WithBaseline sets the rating assigned to participants with no history.
func WithBaseline(baseline float64) Option {
	return func(c *Config) {
		c.Baseline = baseline
	}
}

// WithSoloDivisor sets the logistic divisor for solo and team-average play.
func WithSoloDivisor(d float64) Option {
	return func(c *Config) {
		c.SoloDivisor = d
	}
}

// WithTeamDivisor sets the logistic divisor for the advanced team model.
func WithTeamDivisor(d float64) Option {
	return func(c *Config) {
		c.TeamDivisor = d
	}
}

// WithFixedK sets the fixed sensitivity.
func WithFixedK(k float64) Option {
	return func(c *Config) {
		c.FixedK = k
	}
}

// WithDynamicK sets the shape of the experience-based sensitivity curve.
func WithDynamicK(kMax, scale float64) Option {
	return func(c *Config) {
		c.DynamicKMax = kMax
		c.DynamicKScale = scale
	}
}

// WithSweepBonus sets the multiplier for a 2-0 best-of-3.
func WithSweepBonus(bonus float64) Option {
	return func(c *Config) {
		c.SweepBonus = bonus
	}
}

// WithSweepPolicy sets which side the sweep bonus applies to.
func WithSweepPolicy(p SweepPolicy) Option {
	return func(c *Config) {
		c.SweepPolicy = p
	}
}

// WithTeamModel sets the default team strategy.
func WithTeamModel(m TeamModel) Option {
	return func(c *Config) {
		c.TeamModel = m
	}
}
