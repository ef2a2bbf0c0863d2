package translit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekarpov/bookvault/pkg/translit"
)

func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Привет, мир!", "Privet, mir!"},
		{"Щука", "Shchuka"},
		{"подъезд", "podezd"},
		{"already latin", "already latin"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, translit.String(tt.in))
	}
}

func TestMap(t *testing.T) {
	t.Parallel()

	got := translit.Map(map[string]string{"name": "Иван", "city": "Москва", "n": "42"})
	require.Equal(t, map[string]string{"name": "Ivan", "city": "Moskva", "n": "42"}, got)
}

func TestIsASCII(t *testing.T) {
	t.Parallel()

	require.True(t, translit.IsASCII("plain ascii 123"))
	require.False(t, translit.IsASCII("héllo"))
	require.False(t, translit.IsASCII("привет"))
}
