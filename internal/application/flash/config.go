package flash

// DefaultStorageKey is the session key holding the message list.
const DefaultStorageKey = "hint"

// DefaultTemplate is the template used by Render when none is given.
const DefaultTemplate = "hint/default"

// Config holds per-store settings.
type Config struct {
	StorageKey      string `yaml:"storage_key"`
	DefaultTemplate string `yaml:"default_template"`
}

// DefaultConfig returns the default flash configuration.
func DefaultConfig() Config {
	return Config{
		StorageKey:      DefaultStorageKey,
		DefaultTemplate: DefaultTemplate,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.StorageKey != "" {
		c.StorageKey = source.StorageKey
	}
	if source.DefaultTemplate != "" {
		c.DefaultTemplate = source.DefaultTemplate
	}
}
