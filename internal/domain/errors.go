package domain

import "errors"

// Pipeline error taxonomy. Item-level errors (unsupported media, failed
// transcription, failed extraction) are absorbed into a job's results
// summary; only ErrOrchestration fails a job as a whole.
var (
	// ErrSourceUnavailable indicates the external content source was
	// unreachable or rate-limited. Retryable at the unit level.
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrUnsupportedMedia indicates a content item's media kind cannot be
	// normalized. The item is skipped and counted.
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrTranscriptionFailed indicates audio could not be transcribed
	// within the per-item timeout or at all. The item is skipped and counted.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrExtractionFailed indicates the model returned malformed output
	// for a document after bounded retries. The document is skipped.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInvalidChannelConfig indicates a channel configuration that the
	// registry rejects before it ever reaches the pipeline.
	ErrInvalidChannelConfig = errors.New("invalid channel config")

	// ErrOrchestration indicates an unexpected internal fault that fails
	// the whole job.
	ErrOrchestration = errors.New("orchestration error")

	// ErrJobNotFound indicates an unknown job ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrPredictionNotFound indicates an unknown prediction ID.
	ErrPredictionNotFound = errors.New("prediction not found")
)
