package preset

import (
	"fmt"
	"strings"

	"github.com/srg/bluerepl/internal/bytefmt"
)

// Validate checks every invariant and returns the first violation as a
// *ValidationError. Order: device, then each command, then each function.
func (p *Preset) Validate() error {
	if p.Device != nil && p.Device.Autoconnect && p.Device.Name == "" && p.Device.Address == "" {
		return &ValidationError{
			Rule:   RuleDeviceTarget,
			Detail: "a name or an address is required to autoconnect",
		}
	}

	if p.Commands != nil {
		for pair := p.Commands.Oldest(); pair != nil; pair = pair.Next() {
			if err := p.validateCommand(pair.Key, pair.Value); err != nil {
				return err
			}
		}
	}

	if p.Functions != nil {
		for pair := p.Functions.Oldest(); pair != nil; pair = pair.Next() {
			if err := p.validateFunction(pair.Key, pair.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Preset) validateCommand(name string, cmd *CommandSpec) error {
	if cmd == nil {
		return &ValidationError{Rule: RuleCommandType, Command: name, Detail: "empty command"}
	}

	if !cmd.Kind.IsValid() {
		kinds := make([]string, 0, len(CommandKinds()))
		for _, k := range CommandKinds() {
			kinds = append(kinds, string(k))
		}
		return &ValidationError{
			Rule:    RuleCommandType,
			Command: name,
			Detail:  fmt.Sprintf("%q is not one of %s", cmd.Kind, strings.Join(kinds, ", ")),
		}
	}

	if !cmd.Format.IsValid() {
		return &ValidationError{
			Rule:    RuleFormat,
			Command: name,
			Detail:  fmt.Sprintf("%q is not one of %s", cmd.Format, strings.Join(bytefmt.Formats(), ", ")),
		}
	}

	var svc *ServiceSpec
	if p.Services != nil {
		svc, _ = p.Services.Get(cmd.Service)
	}
	if svc == nil {
		return &ValidationError{
			Rule:    RuleUnknownService,
			Command: name,
			Detail:  fmt.Sprintf("service %q is not declared", cmd.Service),
		}
	}

	var char *CharacteristicSpec
	if svc.Characteristics != nil {
		char, _ = svc.Characteristics.Get(cmd.Characteristic)
	}
	if char == nil {
		return &ValidationError{
			Rule:    RuleUnknownCharacteristic,
			Command: name,
			Detail:  fmt.Sprintf("characteristic %q is not declared in service %q", cmd.Characteristic, cmd.Service),
		}
	}

	if cmd.Kind.IsWrite() && (cmd.Payload == nil || strings.TrimSpace(*cmd.Payload) == "") {
		return &ValidationError{
			Rule:    RuleMissingPayload,
			Command: name,
			Detail:  fmt.Sprintf("%s commands require a payload", cmd.Kind),
		}
	}
	return nil
}

func (p *Preset) validateFunction(name string, fn *FunctionSpec) error {
	if fn == nil {
		return nil
	}

	if len(fn.Commands) != len(fn.DelaysMs) {
		return &ValidationError{
			Rule:     RuleDelayCount,
			Function: name,
			Detail:   fmt.Sprintf("%d commands but %d delays", len(fn.Commands), len(fn.DelaysMs)),
		}
	}

	for _, cmdName := range fn.Commands {
		if _, ok := p.Command(cmdName); !ok {
			return &ValidationError{
				Rule:     RuleUnknownCommand,
				Function: name,
				Detail:   fmt.Sprintf("command %q is not declared", cmdName),
			}
		}
	}
	return nil
}
