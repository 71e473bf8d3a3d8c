package ups

import "github.com/pkg/errors"

var (
	errOutOfRange         = errors.New("ups: record cursor out of range")
	errUnterminatedRecord = errors.New("ups: record not terminated by a zero byte")
	errCreateUnsupported  = errors.New("ups: patch creation is not implemented")
)
