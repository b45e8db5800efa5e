package guidance

import "context"

// Provider generates one raw model completion for a prompt. Completions
// are requested in JSON mode; parsing stays tolerant regardless.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
