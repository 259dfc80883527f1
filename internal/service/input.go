package service

import (
	"fmt"
	"strings"
)

// Input is a button press or remote command.
type Input string

const (
	InputButtonA Input = "A"     // start recording
	InputButtonB Input = "B"     // cancel recording
	InputPower   Input = "POWER" // halt now
	InputWake    Input = "WAKE"  // activity only
)

// ParseInput accepts the input names case-insensitively.
func ParseInput(name string) (Input, error) {
	switch in := Input(strings.ToUpper(strings.TrimSpace(name))); in {
	case InputButtonA, InputButtonB, InputPower, InputWake:
		return in, nil
	}
	return "", fmt.Errorf("unknown input: '%s' (valid: A, B, POWER, WAKE)", name)
}
