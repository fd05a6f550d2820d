package preset

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Print writes a human-readable summary of the preset in declaration order.
func (p *Preset) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "File name:\t%s\n", p.Path)

	if p.Device != nil {
		fmt.Fprintln(w, "\nDevice")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "  Name\t%s\n", p.Device.Name)
		fmt.Fprintf(w, "  Address\t%s\n", p.Device.Address)
		fmt.Fprintf(w, "  Autoconnect\t%t\n", p.Device.Autoconnect)
	}

	if p.Services != nil && p.Services.Len() > 0 {
		fmt.Fprintln(w, "\nServices")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		for pair := p.Services.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(w, "  %s\t%s\n", pair.Key, pair.Value.UUID)
			if pair.Value.Characteristics == nil {
				continue
			}
			for c := pair.Value.Characteristics.Oldest(); c != nil; c = c.Next() {
				fmt.Fprintf(w, "    - %s\t%s\n", c.Key, c.Value.UUID)
			}
		}
	}

	if p.Commands != nil && p.Commands.Len() > 0 {
		fmt.Fprintln(w, "\nCommands")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, "  NAME\tTYPE\tSERVICE\tCHARACTERISTIC\tPAYLOAD\tFORMAT")
		for pair := p.Commands.Oldest(); pair != nil; pair = pair.Next() {
			cmd := pair.Value
			var pl string
			if cmd.Payload != nil {
				pl = *cmd.Payload
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n", pair.Key, cmd.Kind, cmd.Service, cmd.Characteristic, pl, cmd.Format)
		}
	}

	if p.Functions != nil && p.Functions.Len() > 0 {
		fmt.Fprintln(w, "\nFunctions")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, "  NAME\tCOMMANDS\tDELAYS (ms)")
		for pair := p.Functions.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(w, "  %s\t%s\t%v\n", pair.Key, strings.Join(pair.Value.Commands, ", "), pair.Value.DelaysMs)
		}
	}

	return w.Flush()
}

// Export writes the preset document as JSON or YAML, keeping declaration order.
func (p *Preset) Export(out io.Writer, format DocumentFormat) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case YAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
