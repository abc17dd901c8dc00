package scoring

import "errors"

// ErrModelUnavailable is returned when a model artifact cannot be located
// or loaded. It is only produced at construction time.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrEmptyBatch is returned by model backends asked to run zero sequences.
var ErrEmptyBatch = errors.New("empty batch")
