package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

var _ pflag.Value = (*modelFlag)(nil)

// modelFlag holds a --model value. Set rejects values that are not of the form
// provider:name; whether the model is configured is left to the model registry.
type modelFlag string

func (m *modelFlag) String() string { return string(*m) }
func (m *modelFlag) Type() string   { return "provider:name" }

func (m *modelFlag) Set(s string) error {
	s = strings.TrimSpace(s)
	if s != "" {
		provider, name, ok := strings.Cut(s, ":")
		if !ok || provider == "" || name == "" {
			return fmt.Errorf("%q is not of the form provider:name, e.g. ollama:llama3.2", s)
		}
	}
	*m = modelFlag(s)
	return nil
}
