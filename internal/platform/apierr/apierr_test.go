package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("boom")
	e := NotFound("session_not_found", cause)
	assert.Equal(t, "boom", e.Error())
	assert.ErrorIs(t, e, cause)

	assert.Equal(t, "invalid_input", BadRequest("invalid_input", nil).Error())
	assert.Equal(t, "api error (502)", New(502, "", nil).Error())
	var nilErr *Error
	assert.Equal(t, "", nilErr.Error())
}

func TestStatusOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", BadRequest("x", nil))
	assert.Equal(t, http.StatusBadRequest, StatusOf(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(Internal("x", nil)))
}
