package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "Op: msg: boom", E(CodeInternal, "Op", "msg", cause).Error())
	assert.Equal(t, "Op: msg", E(CodeInternal, "Op", "msg", nil).Error())
	assert.Equal(t, "Op: boom", E(CodeInternal, "Op", "", cause).Error())
	assert.Equal(t, "msg: boom", E(CodeInternal, "", "msg", cause).Error())
	assert.Equal(t, "msg", E(CodeInternal, "", "msg", nil).Error())
	assert.Equal(t, "boom", E(CodeInternal, "", "", cause).Error())
	assert.Equal(t, "error", E(CodeInternal, "", "", nil).Error())

	var nilErr *AppError
	assert.Equal(t, "<nil>", nilErr.Error())
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", E(CodePermissionDenied, "mic.Open", "denied", nil))

	assert.True(t, IsCode(err, CodePermissionDenied))
	assert.False(t, IsCode(err, CodeUnavailable))
	assert.Equal(t, CodePermissionDenied, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument:  http.StatusBadRequest,
		CodePermissionDenied: http.StatusForbidden,
		CodeNotFound:         http.StatusNotFound,
		CodeConflict:         http.StatusConflict,
		CodeUnsupported:      http.StatusNotImplemented,
		CodeUnavailable:      http.StatusServiceUnavailable,
		CodeTimeout:          http.StatusGatewayTimeout,
		CodeInternal:         http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(E(code, "", "", nil)), string(code))
	}

	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("other")))
}
