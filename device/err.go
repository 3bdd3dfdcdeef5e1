package device

import (
	"errors"

	"github.com/IV66-6/wertyq/translate"
)

var f = translate.From

var (
	ErrEndOfInput = errors.New(f("end of input"))
	ErrNoOutput   = errors.New(f("no output stream"))
)
