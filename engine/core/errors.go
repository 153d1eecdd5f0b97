package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrLayoutNotFound        = errors.New("layout not found")
	ErrUnknownFrequency      = errors.New("unknown update frequency")
	ErrUnknownDescriptorType = errors.New("unknown descriptor type")
	ErrUnknownType           = errors.New("unknown gfx type")
	ErrUnknownNodeKind       = errors.New("unknown render graph node kind")
	ErrUnknown               = errors.New("unknown")
)
