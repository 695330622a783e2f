package core

import "errors"

var (
	ErrUnknownApp        = errors.New("unknown app")
	ErrMissingAPIKey     = errors.New("a Google API key is required")
	ErrEmptyMessage      = errors.New("message cannot be empty")
	ErrMalformedAnalysis = errors.New("model returned a malformed analysis")
)
