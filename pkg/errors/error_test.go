package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(ErrCodeProviderNoData, "no rows")
	assert.Equal(t, "[202] no rows", plain.Error())

	wrapped := Wrapf(ErrCodeProviderFetchFailed, io.ErrUnexpectedEOF, "fetch %s", "AAPL")
	assert.Equal(t, "[200] fetch AAPL: unexpected EOF", wrapped.Error())
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := Newf(ErrCodeValidationFailed, "validation failed for %s", "MSFT")
	outer := fmt.Errorf("extract: %w", inner)

	require.True(t, HasCode(outer, ErrCodeValidationFailed))
	assert.Equal(t, ErrCodeUnknown, GetCode(io.EOF))
	assert.Equal(t, "validation_failed", GetCode(outer).String())
}
