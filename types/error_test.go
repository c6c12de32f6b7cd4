package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewError(ErrDecode, "bad audio payload")
	assert.Equal(t, "[DECODE_ERROR] bad audio payload", err.Error())

	cause := errors.New("illegal base64 data")
	err = err.WithCause(cause)
	assert.Equal(t, "[DECODE_ERROR] bad audio payload: illegal base64 data", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_Builders(t *testing.T) {
	err := NewError(ErrBackendFailure, "tts backend unreachable").
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithStage("tts").
		WithTraceID("abc123")

	assert.Equal(t, ErrBackendFailure, err.Code)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.True(t, err.Retryable)
	assert.Equal(t, "tts", err.Stage)
	assert.Equal(t, "abc123", err.TraceID)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrTimeout, "deadline").WithRetryable(true)))
	assert.False(t, IsRetryable(NewError(ErrValidation, "bad lang")))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrProtocolViolation, GetErrorCode(NewError(ErrProtocolViolation, "unexpected text")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
