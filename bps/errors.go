package bps

import "github.com/pkg/errors"

var (
	errActionOverrun  = errors.New("bps: action reads or writes past a buffer bound")
	errSourceRequired = errors.New("bps: CreateLinear and CreateDelta require both source and target")
)
