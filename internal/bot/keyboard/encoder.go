package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CustomIDSeparator  = ":"
	CustomIDLimitChars = 100
)

// EncodeCustomID joins a component action and its payload into a Discord custom id.
func EncodeCustomID(action, data string) (string, error) {
	payload := action
	if data != "" {
		payload = action + CustomIDSeparator + data
	}

	if n := len([]rune(payload)); n > CustomIDLimitChars {
		return "", fmt.Errorf("custom id exceeds %d character limit: got %d", CustomIDLimitChars, n)
	}

	return payload, nil
}

// DecodeCustomID splits a custom id produced by EncodeCustomID.
func DecodeCustomID(customID string) (action, data string, err error) {
	if customID == "" {
		return "", "", errors.New("custom id is empty")
	}

	action, data, _ = strings.Cut(customID, CustomIDSeparator)
	return action, data, nil
}
