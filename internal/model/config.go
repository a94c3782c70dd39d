package model

// HeaderConfigKey is the primary key of the singleton header configuration.
const HeaderConfigKey = "header_config"

// A HeaderConfig represents the site branding.
type HeaderConfig struct {
	Timestamps `msgpack:",inline" storm:"inline"`

	Key         string `json:"-"           msgpack:"key"   storm:"id"`
	Title       string `json:"title"       msgpack:"title"`
	Description string `json:"description" msgpack:"description"`
	Photo       Source `json:"photo"       msgpack:"photo"`
}

// DefaultHeaderConfig returns the branding used on first run.
func DefaultHeaderConfig() *HeaderConfig {
	return &HeaderConfig{
		Key:         HeaderConfigKey,
		Title:       "Creative Space",
		Description: "A curated collection of visual stories and inspiration.",
	}
}

// GetID returns the config key.
func (m *HeaderConfig) GetID() string {
	return m.Key
}

// SetID defines the config key.
func (m *HeaderConfig) SetID(key string) {
	m.Key = key
}
