package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/arbor-bot/internal/bot/keyboard"
)

func TestEncodeCustomID(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		data      string
		want      string
		wantError bool
	}{
		{name: "with data", action: "transactions", data: "2", want: "transactions:2"},
		{name: "without data", action: "select", want: "select"},
		{name: "exceeds limit", action: strings.Repeat("x", keyboard.CustomIDLimitChars+1), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyboard.EncodeCustomID(tt.action, tt.data)
			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCustomID(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantAction string
		wantData   string
		wantErr    bool
	}{
		{name: "action and data", input: "transactions:3", wantAction: "transactions", wantData: "3"},
		{name: "only action", input: "delete", wantAction: "delete"},
		{name: "multiple separators", input: "action:part1:part2", wantAction: "action", wantData: "part1:part2"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, data, err := keyboard.DecodeCustomID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantData, data)
		})
	}
}
