package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		quantity int
		want     int
	}{
		{name: "partial", current: 5, quantity: 2, want: 3},
		{name: "exact", current: 5, quantity: 5, want: 0},
		{name: "overdraw floors at zero", current: 2, quantity: 7, want: 0},
		{name: "zero quantity", current: 4, quantity: 0, want: 4},
		{name: "empty stock", current: 0, quantity: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.current, tt.quantity))
		})
	}
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(0))
	require.NoError(t, Check(10))
	require.ErrorIs(t, Check(-1), ErrNegativeQuantity)
}

func TestClamp_NeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.IntRange(0, 1_000_000).Draw(t, "current")
		quantity := rapid.IntRange(0, 1_000_000).Draw(t, "quantity")

		got := Clamp(current, quantity)
		if got < 0 {
			t.Fatalf("Clamp(%d, %d) = %d", current, quantity, got)
		}
		if quantity <= current && got != current-quantity {
			t.Fatalf("Clamp(%d, %d) = %d, want %d", current, quantity, got, current-quantity)
		}
	})
}
