package sdkerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "cardsdk: another session is already active (code 50003)", New(CodeBusy).Error())
	assert.Equal(t, "cardsdk: details (code 30005)", NewWithMessage(CodeInvalidParams, "details").Error())
}

func TestDescriptionFallsBackToCause(t *testing.T) {
	err := &Error{Code: Code(99999), Cause: errors.New("socket closed")}
	assert.Equal(t, "socket closed", err.Description())
}

func TestWrapKeepsTaxonomyErrors(t *testing.T) {
	inner := New(CodeWalletNotFound)
	assert.Same(t, inner, Wrap(CodeCardError, inner))
	assert.Same(t, inner, Underlying(inner))

	wrapped := Wrap(CodeCardError, errors.New("boom"))
	assert.Equal(t, CodeCardError, wrapped.Code)
	assert.EqualError(t, wrapped.Unwrap(), "boom")
}

func TestUnderlying(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Underlying(cause)
	assert.Equal(t, CodeUnderlying, err.Code)
	assert.True(t, errors.Is(err, cause))
}

func TestIsMatchesByCode(t *testing.T) {
	err := NewWithMessage(CodeBusy, "scan in progress")
	assert.True(t, errors.Is(err, New(CodeBusy)))
	assert.False(t, errors.Is(err, New(CodeUserCancelled)))
}

func TestHasCodeThroughChains(t *testing.T) {
	err := fmt.Errorf("preflight: %w", New(CodeTagLost))
	assert.True(t, HasCode(err, CodeTagLost))
	assert.False(t, HasCode(err, CodeBusy))
	assert.False(t, HasCode(errors.New("plain"), CodeTagLost))
	assert.False(t, HasCode(nil, CodeTagLost))
}

func TestFromError(t *testing.T) {
	inner := New(CodeWrongCardNumber)
	err := fmt.Errorf("outer: %w", fmt.Errorf("middle: %w", inner))
	assert.Same(t, inner, FromError(err))
	assert.Nil(t, FromError(errors.New("plain")))
	assert.Nil(t, FromError(nil))
}

func TestJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(New(CodeCardVerificationFailed))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":40011,"localizedDescription":"card verification failed"}`, string(raw))

	var decoded Error
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, CodeCardVerificationFailed, decoded.Code)
	assert.Equal(t, "card verification failed", decoded.Description())
}
