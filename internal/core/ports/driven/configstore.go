package driven

// ConfigStore holds settings under flat dot keys such as "rag.top_k".
//
// The typed getters coerce what they find: a string "0.3" read with GetFloat
// is 0.3, and a missing or unconvertible value is the zero value.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	// GetStringSlice also accepts a comma-separated string.
	GetStringSlice(key string) []string

	// Set stores value and persists the whole configuration.
	Set(key string, value any) error
	Save() error
	// Load replaces the in-memory values with what is persisted.
	Load() error

	// Keys lists the stored keys, sorted.
	Keys() []string
	// Path is where the configuration is persisted.
	Path() string
}
