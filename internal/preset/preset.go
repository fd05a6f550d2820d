// Package preset loads declarative device presets and runs their commands.
//
// A preset names a target peripheral, aliases service and characteristic
// UUIDs with human-readable names, and declares reusable commands and
// multi-step functions built from them. It is loaded and validated once at
// startup and read-only afterwards.
package preset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mcuadros/go-defaults"
	"github.com/pelletier/go-toml/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bluerepl/internal/bytefmt"
)

// CommandKind is the BLE operation a command performs.
type CommandKind string

const (
	KindWrite         CommandKind = "write"
	KindWriteWithResp CommandKind = "write_with_resp"
	KindRead          CommandKind = "read"
	KindNotify        CommandKind = "notify"
	KindIndicate      CommandKind = "indicate"
	KindUnsubscribe   CommandKind = "unsubscribe"
)

// CommandKinds lists the accepted command_type values.
func CommandKinds() []CommandKind {
	return []CommandKind{KindWrite, KindWriteWithResp, KindRead, KindNotify, KindIndicate, KindUnsubscribe}
}

func (k CommandKind) IsValid() bool {
	for _, known := range CommandKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// IsWrite reports whether the command needs a payload.
func (k CommandKind) IsWrite() bool {
	return k == KindWrite || k == KindWriteWithResp
}

// ResponseFormat selects how a read value is rendered, see bytefmt.
type ResponseFormat string

func (f ResponseFormat) IsValid() bool {
	return bytefmt.IsValid(string(f))
}

type DeviceSpec struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty" toml:"name"`
	Address     string `yaml:"address,omitempty" json:"address,omitempty" toml:"address"`
	Autoconnect bool   `yaml:"autoconnect,omitempty" json:"autoconnect,omitempty" toml:"autoconnect"`
}

type CharacteristicSpec struct {
	UUID string `yaml:"uuid" json:"uuid" toml:"uuid"`
}

type ServiceSpec struct {
	UUID            string                                              `yaml:"uuid" json:"uuid"`
	Characteristics *orderedmap.OrderedMap[string, *CharacteristicSpec] `yaml:"characteristics,omitempty" json:"characteristics,omitempty"`
}

type CommandSpec struct {
	Kind           CommandKind    `yaml:"command_type" json:"command_type" toml:"command_type"`
	Service        string         `yaml:"service" json:"service" toml:"service"`
	Characteristic string         `yaml:"characteristic" json:"characteristic" toml:"characteristic"`
	Payload        *string        `yaml:"payload,omitempty" json:"payload,omitempty" toml:"payload"`
	Format         ResponseFormat `yaml:"format,omitempty" json:"format,omitempty" toml:"format" default:"hex"`
}

// FunctionSpec runs Commands in order; Commands[i] is followed by a wait of DelaysMs[i].
type FunctionSpec struct {
	Commands []string `yaml:"commands" json:"commands" toml:"commands"`
	DelaysMs []uint64 `yaml:"commands_delay_ms" json:"commands_delay_ms" toml:"commands_delay_ms"`
}

type Preset struct {
	// Path is the file the preset was loaded from.
	Path string `yaml:"-" json:"-"`

	Device    *DeviceSpec                                   `yaml:"device,omitempty" json:"device,omitempty"`
	Services  *orderedmap.OrderedMap[string, *ServiceSpec]  `yaml:"services,omitempty" json:"services,omitempty"`
	Commands  *orderedmap.OrderedMap[string, *CommandSpec]  `yaml:"commands,omitempty" json:"commands,omitempty"`
	Functions *orderedmap.OrderedMap[string, *FunctionSpec] `yaml:"functions,omitempty" json:"functions,omitempty"`
}

// DocumentFormat is the serialization of a preset file.
type DocumentFormat string

const (
	YAML DocumentFormat = "yaml"
	TOML DocumentFormat = "toml"
	JSON DocumentFormat = "json"
)

// FormatFromPath picks the document format from the file extension; unknown
// extensions are read as YAML.
func FormatFromPath(path string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML
	case ".json":
		return JSON
	default:
		return YAML
	}
}

// Load reads, decodes and validates the preset at path.
// Decoding failures are *LoadError, invariant violations *ValidationError.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	p, err := Parse(data, FormatFromPath(path))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	p.Path = path
	return p, nil
}

// Parse decodes and validates a preset document.
func Parse(data []byte, format DocumentFormat) (*Preset, error) {
	p := &Preset{}

	var err error
	switch format {
	case TOML:
		err = decodeTOML(data, p)
	case JSON:
		err = decodeJSON(data, p)
	case YAML:
		err = decodeYAML(data, p)
	default:
		err = fmt.Errorf("unsupported document format %q", format)
	}
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// normalize replaces absent mappings with empty ones and applies field defaults.
func (p *Preset) normalize() {
	if p.Services == nil {
		p.Services = orderedmap.New[string, *ServiceSpec]()
	}
	if p.Commands == nil {
		p.Commands = orderedmap.New[string, *CommandSpec]()
	}
	if p.Functions == nil {
		p.Functions = orderedmap.New[string, *FunctionSpec]()
	}

	for pair := p.Services.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			pair.Value = &ServiceSpec{}
		}
		if pair.Value.Characteristics == nil {
			pair.Value.Characteristics = orderedmap.New[string, *CharacteristicSpec]()
		}
	}
	for pair := p.Commands.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil {
			defaults.SetDefaults(pair.Value)
		}
	}
}

type tomlService struct {
	UUID            string                         `toml:"uuid"`
	Characteristics map[string]*CharacteristicSpec `toml:"characteristics"`
}

type tomlDocument struct {
	Device    *DeviceSpec              `toml:"device"`
	Services  map[string]*tomlService  `toml:"services"`
	Commands  map[string]*CommandSpec  `toml:"commands"`
	Functions map[string]*FunctionSpec `toml:"functions"`
}

// decodeTOML fills p from a TOML document. TOML tables carry no order, so
// every mapping is ordered by key.
func decodeTOML(data []byte, p *Preset) error {
	var doc tomlDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}

	p.Device = doc.Device
	p.Services = orderedmap.New[string, *ServiceSpec]()
	for _, name := range sortedKeys(doc.Services) {
		ts := doc.Services[name]
		svc := &ServiceSpec{Characteristics: orderedmap.New[string, *CharacteristicSpec]()}
		if ts != nil {
			svc.UUID = ts.UUID
			for _, cname := range sortedKeys(ts.Characteristics) {
				svc.Characteristics.Set(cname, ts.Characteristics[cname])
			}
		}
		p.Services.Set(name, svc)
	}

	p.Commands = orderedmap.New[string, *CommandSpec]()
	for _, name := range sortedKeys(doc.Commands) {
		p.Commands.Set(name, doc.Commands[name])
	}

	p.Functions = orderedmap.New[string, *FunctionSpec]()
	for _, name := range sortedKeys(doc.Functions) {
		p.Functions.Set(name, doc.Functions[name])
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Command returns the named command.
func (p *Preset) Command(name string) (*CommandSpec, bool) {
	if p == nil || p.Commands == nil {
		return nil, false
	}
	cmd, ok := p.Commands.Get(name)
	return cmd, ok && cmd != nil
}

// Function returns the named function.
func (p *Preset) Function(name string) (*FunctionSpec, bool) {
	if p == nil || p.Functions == nil {
		return nil, false
	}
	fn, ok := p.Functions.Get(name)
	return fn, ok && fn != nil
}

// AutoconnectPossible reports whether the device section names a target.
func (p *Preset) AutoconnectPossible() bool {
	if p == nil || p.Device == nil {
		return false
	}
	return p.Device.Name != "" || p.Device.Address != ""
}

// ShouldAutoconnect reports whether the preset asks to connect at startup.
func (p *Preset) ShouldAutoconnect() bool {
	return p.AutoconnectPossible() && p.Device.Autoconnect
}
