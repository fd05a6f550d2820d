package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAML and JSON documents are checked for repeated mapping keys at any depth
// before decoding; the ordered maps would otherwise keep the last value.

// decodeYAML fills p from a YAML document.
func decodeYAML(data []byte, p *Preset) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind == 0 {
		// empty document
		return nil
	}
	if err := checkYAMLKeys(&root); err != nil {
		return err
	}
	return root.Decode(p)
}

func checkYAMLKeys(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		seen := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Value == "<<" {
				continue
			}
			if line, dup := seen[key.Value]; dup {
				return fmt.Errorf("yaml: line %d: mapping key %q already defined at line %d", key.Line, key.Value, line)
			}
			seen[key.Value] = key.Line
		}
	}
	if n.Kind == yaml.AliasNode {
		return nil
	}
	for _, child := range n.Content {
		if err := checkYAMLKeys(child); err != nil {
			return err
		}
	}
	return nil
}

// decodeJSON fills p from a JSON document.
func decodeJSON(data []byte, p *Preset) error {
	if err := checkJSONKeys(json.NewDecoder(bytes.NewReader(data)), "$"); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("json: empty document")
		}
		return err
	}
	return json.Unmarshal(data, p)
}

// checkJSONKeys consumes one value from dec and fails on a repeated object key.
func checkJSONKeys(dec *json.Decoder, path string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		seen := make(map[string]bool)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := tok.(string)
			if seen[key] {
				return fmt.Errorf("json: key %q already defined in %s", key, path)
			}
			seen[key] = true
			if err := checkJSONKeys(dec, path+"."+key); err != nil {
				return err
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			if err := checkJSONKeys(dec, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}

	// closing delimiter
	_, err = dec.Token()
	return err
}
