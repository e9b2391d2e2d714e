package pipeline

import "fmt"

// Стадии конвейера для Error.Stage.
const (
	StageRetrieval = "retrieval"
	StageExecution = "execution"
	StageStreaming = "streaming"
)

// Error — ошибка конвейера с привязкой к стадии.
//
// Воркер кладёт Message в run.error; Stage попадает в логи.
type Error struct {
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создаёт Error для стадии stage.
func NewError(stage, message string, err error) *Error {
	return &Error{Stage: stage, Message: message, Err: err}
}
