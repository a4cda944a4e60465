package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/torosent/poi/internal/jsonobj"
)

const maxAliasDepth = 32

// nodeJSON converts a YAML node into compact JSON, keeping mapping order.
func nodeJSON(node *yaml.Node) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := writeNodeJSON(&buf, node, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNodeJSON(buf *bytes.Buffer, node *yaml.Node, depth int) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNodeJSON(buf, node.Content[0], depth)
	case yaml.AliasNode:
		if depth > maxAliasDepth {
			return fmt.Errorf("line %d: alias nesting too deep", node.Line)
		}
		return writeNodeJSON(buf, node.Alias, depth+1)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(jsonobj.Quote(key.Value))
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, node.Content[i+1], depth); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, item, depth); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return writeScalarJSON(buf, node)
	default:
		return fmt.Errorf("line %d: unsupported YAML node", node.Line)
	}
}

func writeScalarJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatBool(b))
	case "!!int":
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return err
		}
		buf.WriteString(fmt.Sprint(v))
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("line %d: %s cannot be represented in JSON", node.Line, node.Value)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	default:
		buf.Write(jsonobj.Quote(node.Value))
	}
	return nil
}

// jsonNode converts a JSON value into a YAML node for encoding.
func jsonNode(res gjson.Result) *yaml.Node {
	switch {
	case res.IsObject():
		node := &yaml.Node{Kind: yaml.MappingNode}
		res.ForEach(func(key, value gjson.Result) bool {
			node.Content = append(node.Content, stringNode(key.String()), jsonNode(value))
			return true
		})
		return node
	case res.IsArray():
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range res.Array() {
			node.Content = append(node.Content, jsonNode(item))
		}
		return node
	}

	switch res.Type {
	case gjson.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case gjson.True, gjson.False:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: res.Raw}
	case gjson.Number:
		tag := "!!int"
		if _, err := strconv.ParseInt(res.Raw, 10, 64); err != nil {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: res.Raw}
	default:
		return stringNode(res.String())
	}
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}

func describeNode(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.ScalarNode:
		return fmt.Sprintf("%s %q", node.ShortTag(), node.Value)
	default:
		return "document"
	}
}
