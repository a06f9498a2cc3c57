package evaluation

import "github.com/pkg/errors"

// ErrEmptyEvaluation is returned when no identifier pair could be scored, so the mean
// accuracy is undefined.
var ErrEmptyEvaluation = errors.New("empty evaluation: no identifier pairs matched")

// ErrUnknownPolicy is returned when a match policy name cannot be parsed.
var ErrUnknownPolicy = errors.New("unknown match policy")
