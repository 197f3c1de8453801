package naming

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func takenSet(names ...string) ExistsFunc {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(_ context.Context, name string) (bool, error) {
		return set[name], nil
	}
}

func TestResolveUniqueName(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		base  string
		taken []string
		want  string
	}{
		{name: "free", base: "Asha Rao", want: "Asha Rao"},
		{name: "first suffix", base: "Asha Rao", taken: []string{"Asha Rao"}, want: "Asha Rao-1"},
		{name: "skips taken suffixes", base: "Asha Rao", taken: []string{"Asha Rao", "Asha Rao-1", "Asha Rao-2"}, want: "Asha Rao-3"},
		{name: "gap is not reused before base", base: "Guest", taken: []string{"Guest-1"}, want: "Guest"},
		{name: "trims base", base: "  Ravi ", taken: []string{"Ravi"}, want: "Ravi-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveUniqueName(ctx, tt.base, takenSet(tt.taken...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUniqueNameErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ResolveUniqueName(ctx, "   ", takenSet())
	assert.ErrorIs(t, err, ErrEmptyBase)

	boom := errors.New("store down")
	_, err = ResolveUniqueName(ctx, "x", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	calls := 0
	_, err = ResolveUniqueName(ctx, "x", func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	assert.Error(t, err)
	assert.Equal(t, MaxAttempts, calls)
}

func TestSplitFullName(t *testing.T) {
	first, last := SplitFullName("  Asha   Devi Rao ")
	assert.Equal(t, "Asha", first)
	assert.Equal(t, "Devi Rao", last)

	first, last = SplitFullName("Mononym")
	assert.Equal(t, "Mononym", first)
	assert.Equal(t, "", last)

	first, last = SplitFullName("")
	assert.Equal(t, "", first)
	assert.Equal(t, "", last)
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Asha Rao", FullName(" Asha ", "", "Rao"))
	assert.Equal(t, "", FullName("", " "))
}
