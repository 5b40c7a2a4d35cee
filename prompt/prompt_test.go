package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInteractive(t *testing.T) {
	for _, test := range []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"anything else\n", false},
		{"", false}, // EOF counts as a decline
	} {
		var out bytes.Buffer
		ask := Interactive(strings.NewReader(test.answer), &out)
		assert.Equal(t, test.want, ask("Copy failed."), "answer %q", test.answer)
		assert.Contains(t, out.String(), "Copy failed.")
	}
}

func TestNeverAndAlways(t *testing.T) {
	assert.False(t, Never()("anything"))
	assert.True(t, Always()("anything"))
}
