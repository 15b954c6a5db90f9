package loader

import "fmt"

// Stage names the step at which a cell failed.
type Stage string

const (
	StageCompile Stage = "compile"
	StageExecute Stage = "execute"
)

// CellError attaches a cell's provenance to the interpreter error that stopped
// a load. Unwrap returns that error untouched.
type CellError struct {
	Path  string
	Index int
	Label string
	Stage Stage
	Err   error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Label, e.Stage, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}
