package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidPhone(t *testing.T) {
	t.Parallel()

	valid := []string{"9876543210", "0123456789", " 9876543210 "}
	invalid := []string{"", "12345", "98765432100", "98765abc10", "+919876543210"}

	for _, s := range valid {
		require.True(t, ValidPhone(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		require.False(t, ValidPhone(s), "expected invalid: %q", s)
	}
}

func TestValidUPI(t *testing.T) {
	t.Parallel()

	valid := []string{"northmess@upi", "a.b-c_d@oksbi", "Canteen21@ybl"}
	invalid := []string{"", "@upi", "name@", "name", "name@1", "na me@upi"}

	for _, s := range valid {
		require.True(t, ValidUPI(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		require.False(t, ValidUPI(s), "expected invalid: %q", s)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := NormalizeTags([]string{" Chaat ", "chaat", "", "South Indian", "CHAAT"})
	require.Equal(t, []string{"chaat", "south indian"}, got)
}
