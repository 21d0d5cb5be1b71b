package orders

import (
	"testing"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []cart.Line
		ok    bool
	}{
		{"valid", []cart.Line{{ProductID: 1, Quantity: 2}}, true},
		{"zero quantity", []cart.Line{{ProductID: 1, Quantity: 0}}, false},
		{"negative quantity", []cart.Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: -9}}, false},
		{"missing product", []cart.Line{{ProductID: 0, Quantity: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkLines(tt.lines)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, "invalid_quantity", apperr.As(err).Code)
		})
	}
}
