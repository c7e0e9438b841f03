package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "direct", err: NotFound("product %s not found", "p1"), want: KindNotFound},
		{name: "wrapped", err: errors.Wrap(Forbidden("not yours"), "cancel order"), want: KindForbidden},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "internal with cause", err: Internal(errors.New("db down"), "load order"), want: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := errors.Wrap(InsufficientStock("insufficient stock for %s", "Lamp"), "create order")
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal server error", Message(Internal(errors.New("pq: connection refused"), "load")))
	assert.Equal(t, "internal server error", Message(errors.New("raw")))
	assert.Equal(t, "order not found", Message(NotFound("order not found")))
}
