package ghome

import (
	"encoding/json"
	"fmt"
)

// execute commands
const (
	CommandOnOff              = "action.devices.commands.OnOff"
	CommandBrightnessAbsolute = "action.devices.commands.BrightnessAbsolute"
	CommandColorAbsolute      = "action.devices.commands.ColorAbsolute"
)

type ExecuteRequestPayload struct {
	Commands []Command `json:"commands"`
}

// Command groups the devices a list of executions applies to.
type Command struct {
	Devices    []DeviceRef `json:"devices"`
	Executions []Execution `json:"execution"`
}

type Execution struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ExecuteResponsePayload struct {
	Commands []CommandResult `json:"commands"`
}

type CommandResult struct {
	IDs       []string       `json:"ids"`
	Status    string         `json:"status"`
	States    map[string]any `json:"states,omitempty"`
	ErrorCode string         `json:"errorCode,omitempty"`
}

// UnsupportedCommandError is returned by Decode for commands outside the
// supported set.
type UnsupportedCommandError struct {
	Command string
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("unsupported command %q", e.Command)
}

// ExecuteCommand is one of OnOff, BrightnessAbsolute or ColorAbsolute.
type ExecuteCommand interface {
	isExecuteCommand()
}

type OnOff struct {
	On bool `json:"on"`
}

type BrightnessAbsolute struct {
	Brightness uint8 `json:"brightness"`
}

type ColorAbsolute struct {
	Color CommandColor `json:"color"`
}

func (OnOff) isExecuteCommand()              {}
func (BrightnessAbsolute) isExecuteCommand() {}
func (ColorAbsolute) isExecuteCommand()      {}

// Decode parses the execution params into the typed command named by Command.
func (e Execution) Decode() (ExecuteCommand, error) {
	switch e.Command {
	case CommandOnOff:
		var c OnOff
		if err := json.Unmarshal(e.Params, &c); err != nil {
			return nil, fmt.Errorf("decoding %s params: %w", e.Command, err)
		}
		return c, nil
	case CommandBrightnessAbsolute:
		var c BrightnessAbsolute
		if err := json.Unmarshal(e.Params, &c); err != nil {
			return nil, fmt.Errorf("decoding %s params: %w", e.Command, err)
		}
		return c, nil
	case CommandColorAbsolute:
		var c ColorAbsolute
		if err := json.Unmarshal(e.Params, &c); err != nil {
			return nil, fmt.Errorf("decoding %s params: %w", e.Command, err)
		}
		return c, nil
	default:
		return nil, &UnsupportedCommandError{Command: e.Command}
	}
}
