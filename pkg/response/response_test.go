package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errUnavailable = NewError(http.StatusServiceUnavailable, "record store unavailable")

func TestErrorMatchesThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("%w: %w", errUnavailable, cause)

	assert.ErrorIs(t, err, errUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, NewError(http.StatusConflict, "record store unavailable"))

	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStatusCodeWithoutResponseError(t *testing.T) {
	_, ok := StatusCode(errors.New("plain"))
	assert.False(t, ok)
}
