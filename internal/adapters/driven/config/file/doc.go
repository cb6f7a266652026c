// Package file keeps configuration on the local disk: ConfigStore in
// config.toml and PromptStore as one editable text file per answer prompt.
// Value coercion is shared with the in-memory store through package config.
package file
