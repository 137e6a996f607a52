package ai

import "errors"

var (
	// ErrDimensionMismatch indicates an embedding whose length differs from Config.Dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProviderClosed is returned by Shared.Get after Close.
	ErrProviderClosed = errors.New("ai provider closed")
)
