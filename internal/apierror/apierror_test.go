package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	notFound := NotFound("missing")
	assert.Same(t, notFound, From(notFound))
	assert.Same(t, notFound, From(fmt.Errorf("lookup: %w", notFound)))

	cause := errors.New("connection refused")
	got := From(cause)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, MsgInternal, got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x").Status)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("x").Status)
	assert.Equal(t, http.StatusNotFound, NotFound("x").Status)
	assert.Equal(t, http.StatusTooManyRequests, TooManyRequests("x").Status)
	assert.Equal(t, "x", Validation("x").Error())
}
