package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/jsonobj"
	"github.com/torosent/poi/internal/request"
)

// Encode writes a single named profile as YAML in the file format Load
// accepts. Empty params, headers, body and pick_results are omitted.
func Encode(w io.Writer, name string, req *request.Profile, res extractor.Profile) error {
	if req == nil {
		return fmt.Errorf("encode %s: request profile is required", name)
	}

	reqNode := &yaml.Node{Kind: yaml.MappingNode}
	addField(reqNode, "method", stringNode(req.Method))
	addField(reqNode, "url", stringNode(req.URL.String()))
	if req.Params.Len() > 0 {
		addField(reqNode, "params", objectNode(req.Params))
	}
	if len(req.Headers) > 0 {
		headers := &yaml.Node{Kind: yaml.MappingNode}
		keys := make([]string, 0, len(req.Headers))
		for key := range req.Headers {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			addField(headers, key, stringNode(strings.Join(req.Headers[key], ", ")))
		}
		addField(reqNode, "headers", headers)
	}
	if req.Body.Len() > 0 {
		addField(reqNode, "body", objectNode(req.Body))
	}

	profileNode := &yaml.Node{Kind: yaml.MappingNode}
	addField(profileNode, "req", reqNode)
	if !res.IsZero() {
		picks := &yaml.Node{Kind: yaml.MappingNode}
		for _, pick := range res.Picks {
			addField(picks, pick.Path, stringNode(pick.Field))
		}
		resNode := &yaml.Node{Kind: yaml.MappingNode}
		addField(resNode, "pick_results", picks)
		addField(profileNode, "res", resNode)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	addField(root, name, profileNode)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return enc.Close()
}

// EncodeProfile is Encode for a registry profile.
func EncodeProfile(w io.Writer, p *Profile) error {
	return Encode(w, p.Name, p.Request, p.Response)
}

func addField(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, stringNode(key), value)
}

func objectNode(obj *jsonobj.Object) *yaml.Node {
	raw, _ := obj.MarshalJSON()
	return jsonNode(gjson.ParseBytes(raw))
}
