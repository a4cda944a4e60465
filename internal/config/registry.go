package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/jsonobj"
	"github.com/torosent/poi/internal/request"
)

// DefaultConfigFile is used when no --config flag or POI_CONFIG is given.
const DefaultConfigFile = "./poi.yaml"

type fileProfile struct {
	Req *fileRequest `yaml:"req"`
	Res fileResponse `yaml:"res"`
}

type fileRequest struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Params  yaml.Node         `yaml:"params"`
	Headers map[string]string `yaml:"headers"`
	Body    yaml.Node         `yaml:"body"`
}

type fileResponse struct {
	PickResults yaml.Node `yaml:"pick_results"`
}

// Registry holds the named profiles of one configuration file.
type Registry struct {
	path     string
	names    []string
	profiles map[string]*Profile
}

// Load reads and validates a YAML or JSON profile file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reg.path = path
	return reg, nil
}

// Parse decodes profiles from YAML or JSON. Every profile is validated and any
// invalid one fails the whole parse.
func Parse(data []byte) (*Registry, error) {
	reg := &Registry{profiles: make(map[string]*Profile)}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return reg, nil
	}
	root := doc.Content[0]
	if isNull(root) {
		return reg, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse config: top level must be a mapping of profile names, got %s", describeNode(root))
	}

	var errs []error
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		if _, dup := reg.profiles[name]; dup {
			errs = append(errs, &ProfileError{Name: name, Err: errors.New("duplicate profile name")})
			continue
		}
		profile, err := buildProfile(name, root.Content[i+1])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reg.names = append(reg.names, name)
		reg.profiles[name] = profile
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (*Profile, error) {
	if p, ok := r.profiles[name]; ok {
		return p, nil
	}
	if r.path != "" {
		return nil, fmt.Errorf("%w: %s not found in config file %s", ErrProfileNotFound, name, r.path)
	}
	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// Names lists profile names in file order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Path returns the file the registry was loaded from, if any.
func (r *Registry) Path() string {
	return r.path
}

// Validate re-checks every profile.
func (r *Registry) Validate() error {
	var errs []error
	for _, name := range r.names {
		if err := r.profiles[name].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildProfile(name string, node *yaml.Node) (*Profile, error) {
	fail := func(issues ...string) error {
		return &ProfileError{Name: name, Err: ValidationError{issues: issues}}
	}
	if node.Kind != yaml.MappingNode {
		return nil, fail(fmt.Sprintf("profile must be a mapping, got %s", describeNode(node)))
	}

	var fp fileProfile
	if err := node.Decode(&fp); err != nil {
		return nil, &ProfileError{Name: name, Err: err}
	}
	if fp.Req == nil {
		return nil, fail("req is required")
	}

	var issues []string
	params, err := objectField("params", &fp.Req.Params)
	if err != nil {
		issues = append(issues, err.Error())
	}
	body, err := objectField("body", &fp.Req.Body)
	if err != nil {
		issues = append(issues, err.Error())
	}
	picks, err := pickResults(&fp.Res.PickResults)
	if err != nil {
		issues = append(issues, err.Error())
	}
	if strings.TrimSpace(fp.Req.URL) == "" {
		issues = append(issues, "req.url is required")
	}
	if len(issues) > 0 {
		return nil, fail(issues...)
	}

	req, err := request.New(fp.Req.Method, fp.Req.URL, params, fp.Req.Headers, body)
	if err != nil {
		return nil, &ProfileError{Name: name, Err: fmt.Errorf("req failed to validate: %w", err)}
	}

	return &Profile{
		Name:     name,
		Request:  req,
		Response: extractor.Profile{Picks: picks},
	}, nil
}

// objectField converts an optional mapping node into an ordered object.
func objectField(field string, node *yaml.Node) (*jsonobj.Object, error) {
	if node.Kind == 0 || isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		text, _ := yaml.Marshal(node)
		return nil, fmt.Errorf("%s must be an object but got\n%s", field, strings.TrimRight(string(text), "\n"))
	}
	raw, err := nodeJSON(node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return jsonobj.Parse(raw)
}

func pickResults(node *yaml.Node) ([]extractor.Pick, error) {
	if node.Kind == 0 || isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("res.pick_results must be a mapping of path to field name, got %s", describeNode(node))
	}
	picks := make([]extractor.Pick, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode || isNull(value) {
			return nil, fmt.Errorf("res.pick_results[%s]: field name must be a string", key.Value)
		}
		picks = append(picks, extractor.Pick{Path: key.Value, Field: value.Value})
	}
	return picks, nil
}
