package upload

import "errors"

// Error kinds reported by the pipeline. Match them with errors.Is.
var (
	ErrMissingFile         = errors.New("no file uploaded")
	ErrReceiveFailed       = errors.New("receive failed")
	ErrResizeFailed        = errors.New("resize failed")
	ErrStorageUploadFailed = errors.New("storage upload failed")
	ErrCleanupFailed       = errors.New("cleanup failed")
)

// Stage names used in errors, logs and metrics.
const (
	StageReceive = "receive"
	StageResize  = "resize"
	StageStorage = "storage"
	StageCleanup = "cleanup"
)

// Error is a pipeline failure: the kind, the stage it happened in and the
// underlying cause.
type Error struct {
	Kind  error
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageError(kind error, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// resultLabel is the metrics label for a pipeline outcome.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingFile):
		return "missing_file"
	case errors.Is(err, ErrReceiveFailed):
		return "receive_failed"
	case errors.Is(err, ErrResizeFailed):
		return "resize_failed"
	case errors.Is(err, ErrStorageUploadFailed):
		return "storage_upload_failed"
	default:
		return "error"
	}
}
