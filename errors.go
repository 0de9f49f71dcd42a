package sectionflow

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	ErrSectionNotFound     = errors.New("section not found", j.C("ERR_8f3be21c74da901e"))
	ErrRowNotFound         = errors.New("section row not found", j.C("ERR_41c09ab8823f6d55"))
	ErrCacheRecordNotFound = errors.New("cache record not found", j.C("ERR_b65d10c2f3aa8411"))
	ErrOutboxEventNotFound = errors.New("outbox event not found", j.C("ERR_2d98c1047e5b33fa"))
	ErrInvalidTransition   = errors.New("illegal row status transition", j.C("ERR_c50f7e1984aab2d6"))
	ErrSectionNotEditable  = errors.New("section is not editable at its current status", j.C("ERR_77a1d5be30c2498f"))
	ErrUnknownCacheTable   = errors.New("cache table not registered", j.C("ERR_e84b1fa6d90c2273"))
	ErrValidationFailed    = errors.New("database validation failed", j.C("ERR_19ddfc3b7a640e85"))
)
