package llm

import "fmt"

const (
	StageQuiz   = "quiz"
	StageTopics = "topics"
)

// GenerationError reports a backend failure or an unusable backend reply.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
