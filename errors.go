package eink

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrNilImage   = errors.New("nil image")
	ErrEmptyImage = errors.New("zero-area image")
	ErrDecode     = errors.New("undecodable image")
	ErrMismatch   = errors.New("pixel buffer does not match dimensions")
)

// ImageError is returned for every input the pipeline refuses to convert.
// Err is one of the package sentinels, possibly wrapping a decoder error.
type ImageError struct {
	Op   string
	Size image.Point
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("eink: %s [%dx%d]: %v", e.Op, e.Size.X, e.Size.Y, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

func imageError(op string, size image.Point, err error) error {
	return &ImageError{Op: op, Size: size, Err: err}
}
