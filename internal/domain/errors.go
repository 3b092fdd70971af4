package domain

import "errors"

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyEmbedding    = errors.New("empty embedding")
	ErrSourceUnavailable = errors.New("content source unavailable")
	ErrCompletion        = errors.New("completion failed")
	ErrInvalidTemplate   = errors.New("invalid chat template")
	ErrUnknownRole       = errors.New("unknown role")
)
