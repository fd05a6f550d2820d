package preset

import (
	"errors"
	"fmt"
)

var (
	ErrLoad             = errors.New("cannot load preset")
	ErrInvalidPreset    = errors.New("invalid preset")
	ErrCommandNotFound  = errors.New("command not found")
	ErrFunctionNotFound = errors.New("function not found")
	ErrNoPreset         = errors.New("no preset loaded")
)

// LoadError is returned when a preset file cannot be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", ErrLoad, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", ErrLoad, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Rule identifies the preset invariant a ValidationError reports.
type Rule string

const (
	RuleUnknownService        Rule = "unknown service"
	RuleUnknownCharacteristic Rule = "unknown characteristic"
	RuleDelayCount            Rule = "delay count mismatch"
	RuleUnknownCommand        Rule = "unknown command"
	RuleMissingPayload        Rule = "missing payload"
	RuleCommandType           Rule = "invalid command type"
	RuleFormat                Rule = "invalid format"
	RuleDeviceTarget          Rule = "autoconnect without target"
)

// ValidationError reports the first invariant a preset violates.
// At most one of Command and Function is set.
type ValidationError struct {
	Rule     Rule
	Command  string
	Function string
	Detail   string
}

func (e *ValidationError) Error() string {
	where := "device"
	switch {
	case e.Command != "":
		where = fmt.Sprintf("command %q", e.Command)
	case e.Function != "":
		where = fmt.Sprintf("function %q", e.Function)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidPreset, where, e.Rule)
	}
	return fmt.Sprintf("%s: %s: %s: %s", ErrInvalidPreset, where, e.Rule, e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidPreset }
