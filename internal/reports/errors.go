package reports

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrRetryRequired         = errors.New("retry required")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeExtraction        = "EXTRACTION_FAILED"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// PipelineFailure is the only fatal outcome of the ingestion pipeline: no
// structured object could be recovered from the model output. Every other
// anomaly (coverage shortfall, numeric gaps, reference gaps) is repaired
// deterministically and never surfaces as an error. Callers mark the
// enclosing report failed with the carried code.
type PipelineFailure struct {
	Code string
	Err  error
}

func (f *PipelineFailure) Error() string {
	if f.Err == nil {
		return "pipeline failure: " + f.Code
	}
	return "pipeline failure " + f.Code + ": " + f.Err.Error()
}

func (f *PipelineFailure) Unwrap() error { return f.Err }
