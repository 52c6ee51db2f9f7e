package types

import "errors"

var (
	ErrImageDecodeFailure    = errors.New("image could not be decoded")
	ErrLowQuality            = errors.New("fingerprint quality too low")
	ErrNoFeaturesExtracted   = errors.New("no features could be extracted")
	ErrNoTemplatesForSubject = errors.New("no templates enrolled for subject")
	ErrEnrollmentLimit       = errors.New("maximum enrollments reached")
)
