package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("vote.delete", nil), KindNotFound},
		{"transient", Transient("vote.submit", cause), KindTransient},
		{"validation", Validation("vote.submit", "bad category"), KindValidation},
		{"wrapped transient", fmt.Errorf("outer: %w", Transient("x", cause)), KindTransient},
		{"plain error", cause, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("vote.delete", errors.New("no rows"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTransient)
}

func TestTransient_KeepsExistingKind(t *testing.T) {
	inner := NotFound("vote.delete", nil)

	err := Transient("tx", inner)

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Nil(t, Transient("tx", nil))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Transient("video.recalculate", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "video.recalculate")
	assert.Contains(t, err.Error(), "boom")
}
