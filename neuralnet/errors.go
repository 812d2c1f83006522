package neuralnet

import "github.com/pkg/errors"

// ErrDimension is the panic value (wrapped) raised when a caller hands a
// layer or network a vector whose length does not match its dimensions.
var ErrDimension = errors.New("neuralnet: dimension mismatch")

func mustSameLen(what string, got, want int) {
	if got != want {
		panic(errors.Wrapf(ErrDimension, "%s: length %d, want %d", what, got, want))
	}
}
