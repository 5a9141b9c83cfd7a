package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindAuth:         http.StatusUnauthorized,
		KindLimitReached: http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindUpstream:     http.StatusInternalServerError,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("twilio: 21211 invalid number")
	err := fmt.Errorf("place call: %w", Upstream("telephony request failed", cause))

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.True(t, Is(err, KindUpstream))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "21211")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}
