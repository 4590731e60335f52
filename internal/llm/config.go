// Package llm provides the reasoning-model client used by the generation
// adapter, with tiered model selection and a Gemini implementation.
package llm

// ModelTier represents the capability level of a model.
type ModelTier string

const (
	// TierStandard is for moderate structured-output work.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for the deep analysis stages of the pipeline.
	TierAdvanced ModelTier = "advanced"
)

// Config holds the model configuration for the application.
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the default Gemini model configuration.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a tier, falling back to the standard
// tier when the requested one is not configured.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	cfg := &Config{Models: make(map[ModelTier]string, len(c.Models)+1)}
	for k, v := range c.Models {
		cfg.Models[k] = v
	}
	cfg.Models[tier] = model
	return cfg
}
