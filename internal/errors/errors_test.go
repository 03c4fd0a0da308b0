package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"sxfit/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{core.NewConfigError("experiment.live_time", "required"), CodeConfigInvalid},
		{core.NewUnknownSystematicTypeError("s", "smear"), CodeUnknownSystematic},
		{core.NewInvalidReferenceError("energy", "catalog"), CodeInvalidReference},
		{core.ErrCatalogFrozen, CodeInvalidReference},
		{core.NewIOError("a.root", nil), CodeIOError},
		{core.NewDimensionMismatchError("rank", 3, 2), CodeDimensionMismatch},
		{fmt.Errorf("wrapped: %w", core.ErrIO), CodeIOError},
		{stderrors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, Classify(tt.err), tt.err.Error())
	}
}

func TestWrapKeepsCodeAndChain(t *testing.T) {
	base := core.NewInvalidReferenceError("mc_energy", "sample buffer")

	wrapped := Wrap(base, "build signal")
	assert.Equal(t, CodeInvalidReference, GetCode(wrapped))
	assert.ErrorIs(t, wrapped, core.ErrInvalidReference)

	outer := Wrapf(wrapped, "configure %s", "fit.json")
	assert.Equal(t, CodeInvalidReference, GetCode(outer))
	assert.ErrorIs(t, outer, core.ErrInvalidReference)

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeStorageError, stderrors.New("disk full"))
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeStorageError, GetCode(err))
	assert.Equal(t, "disk full: disk full", err.Error())
}
