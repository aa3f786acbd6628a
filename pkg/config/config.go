package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates no value was set for the config
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped source of a configuration value
type Config interface {
	// Get returns the latest config value
	Get(ctx context.Context) (interface{}, error)

	// Shutdown signals the config to stop all underlying resources
	Shutdown()
}

// Value is a typed configuration value that falls back to a default when its
// source has no value.
type Value[T any] interface {
	// Get returns the latest value, or the last known value when the source
	// fails.
	Get(ctx context.Context) T

	// GetSafe is Get, but also returns the source's error.
	GetSafe(ctx context.Context) (T, error)

	Shutdown()
}

type (
	Bool     = Value[bool]
	Duration = Value[time.Duration]
	Float64  = Value[float64]
	String   = Value[string]
	Uint64   = Value[uint64]
)
