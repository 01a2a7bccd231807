package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Cookie struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Cookies keeps cookies in insertion order. It decodes from either an
// object ({"session": "abc"}) or a list of name/value pairs, and the object
// form preserves the order the keys were written in.
type Cookies []Cookie

// Header renders the cookies as a Cookie header value
func (c Cookies) Header() string {
	parts := make([]string, 0, len(c))
	for _, cookie := range c {
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}
	return strings.Join(parts, "; ")
}

func (c *Cookies) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}

	if trimmed[0] == '[' {
		var list []Cookie
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("failed to decode cookie list: %w", err)
		}
		*c = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode cookies: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("cookies must be an object or a list, got %v", tok)
	}

	var out Cookies
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode cookie name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("cookie name must be a string, got %v", keyTok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("cookie %q: %w", name, err)
		}
		out = append(out, Cookie{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode cookies: %w", err)
	}

	*c = out
	return nil
}

func (c Cookies) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cookie := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(cookie.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(cookie.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Cookies) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []Cookie
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("failed to decode cookie list: %w", err)
		}
		*c = list
		return nil

	case yaml.MappingNode:
		out := make(Cookies, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var name, val string
			if err := value.Content[i].Decode(&name); err != nil {
				return fmt.Errorf("failed to decode cookie name: %w", err)
			}
			if err := value.Content[i+1].Decode(&val); err != nil {
				return fmt.Errorf("cookie %q: %w", name, err)
			}
			out = append(out, Cookie{Name: name, Value: val})
		}
		*c = out
		return nil

	default:
		return fmt.Errorf("cookies must be a mapping or a sequence (line %d)", value.Line)
	}
}

func (c Cookies) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, cookie := range c {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: cookie.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: cookie.Value},
		)
	}
	return node, nil
}
