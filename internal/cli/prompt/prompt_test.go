package prompt

import (
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(fmt.Errorf("prompt: %w", ErrAborted)))
	assert.False(t, IsAborted(fmt.Errorf("boom")))
	assert.Equal(t, ErrAborted, wrapError(promptui.ErrInterrupt))
	assert.NoError(t, wrapError(nil))
}

func TestParseYesNo(t *testing.T) {
	assert.True(t, parseYesNo("", true))
	assert.False(t, parseYesNo("", false))
	assert.True(t, parseYesNo(" YES ", false))
	assert.True(t, parseYesNo("y", false))
	assert.False(t, parseYesNo("nope", true))
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) error
		input string
		ok    bool
	}{
		{"int ok", intAtLeast(1), "10", true},
		{"int below min", intAtLeast(1), "0", false},
		{"int garbage", intAtLeast(1), "ten", false},
		{"port ok", validatePort, "8080", true},
		{"port zero", validatePort, "0", false},
		{"port too high", validatePort, "70000", false},
		{"fraction ok", validateFraction, "0.8", true},
		{"fraction one", validateFraction, "1", true},
		{"fraction zero", validateFraction, "0", false},
		{"fraction above one", validateFraction, "1.5", false},
		{"fraction garbage", validateFraction, "most", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
