package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase and punctuation", in: "Hello, World!", want: "hello world"},
		{name: "collapse whitespace", in: "  go   developer\n\twith  k8s ", want: "go developer with k8s"},
		{name: "symbols removed", in: "C++ & C# <dev>", want: "c c dev"},
		{name: "non ascii kept", in: "Résumé – Zürich", want: "résumé – zürich"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Python, SQL and AWS.", CleanText("\n Python,\nSQL   and\r\nAWS. \n"))
	assert.Equal(t, "", CleanText("\n\n  "))
}
