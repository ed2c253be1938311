// Package ai abstracts the model calls used by the two AI pipeline steps.
package ai

import "context"

// Completer produces a completion for a prompt. Implementations must honor
// ctx deadlines; callers bound every invocation with a per-call timeout and
// treat failures as step-local, never fatal.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Static returns a fixed response for every prompt. Test helper.
type Static struct {
	Response string
	Err      error
	Prompts  []string
}

// Complete implements Completer.
func (s *Static) Complete(_ context.Context, prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	return s.Response, s.Err
}
