package pipeline

import "fmt"

// Stage names a step of the extraction pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageRequest    Stage = "request"
	StageDecode     Stage = "decode"
	StagePreprocess Stage = "preprocess"
	StageOCR        Stage = "ocr"
	StageExtract    Stage = "extract"
)

// StageError reports which stage of an extraction failed.
type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

func stageErr(stage Stage, cause error) *StageError {
	return &StageError{Stage: stage, Cause: cause}
}
