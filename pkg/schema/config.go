package schema

// Security levels controlling sanitization of diagram text.
const (
	SecurityStrict = "strict"
	SecurityLoose  = "loose"
)

// SiteConfig is the engine-wide configuration shared by every render pass.
type SiteConfig struct {
	StartOnLoad         bool   `json:"start_on_load" yaml:"start_on_load"`
	DeterministicIDs    bool   `json:"deterministic_ids" yaml:"deterministic_ids"`
	DeterministicIDSeed string `json:"deterministic_id_seed" yaml:"deterministic_id_seed"`
	SecurityLevel       string `json:"security_level" yaml:"security_level"`
	MaxTextSize         int    `json:"max_text_size" yaml:"max_text_size"`
	LogLevel            string `json:"log_level" yaml:"log_level"`
}

// DefaultSiteConfig returns the configuration used when nothing is overridden.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		StartOnLoad:   true,
		SecurityLevel: SecurityStrict,
		MaxTextSize:   50000,
		LogLevel:      "info",
	}
}

// SiteConfigPatch is a partial update to SiteConfig. Nil fields are left
// unchanged when applied.
type SiteConfigPatch struct {
	StartOnLoad         *bool   `json:"start_on_load,omitempty" yaml:"start_on_load,omitempty"`
	DeterministicIDs    *bool   `json:"deterministic_ids,omitempty" yaml:"deterministic_ids,omitempty"`
	DeterministicIDSeed *string `json:"deterministic_id_seed,omitempty" yaml:"deterministic_id_seed,omitempty"`
	SecurityLevel       *string `json:"security_level,omitempty" yaml:"security_level,omitempty"`
	MaxTextSize         *int    `json:"max_text_size,omitempty" yaml:"max_text_size,omitempty"`
	LogLevel            *string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// Apply returns a copy of c with the non-nil fields of the patch applied.
func (c SiteConfig) Apply(p SiteConfigPatch) SiteConfig {
	if p.StartOnLoad != nil {
		c.StartOnLoad = *p.StartOnLoad
	}
	if p.DeterministicIDs != nil {
		c.DeterministicIDs = *p.DeterministicIDs
	}
	if p.DeterministicIDSeed != nil {
		c.DeterministicIDSeed = *p.DeterministicIDSeed
	}
	if p.SecurityLevel != nil {
		c.SecurityLevel = *p.SecurityLevel
	}
	if p.MaxTextSize != nil {
		c.MaxTextSize = *p.MaxTextSize
	}
	if p.LogLevel != nil {
		c.LogLevel = *p.LogLevel
	}
	return c
}
