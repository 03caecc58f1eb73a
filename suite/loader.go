package suite

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fuchsia74/apiconform/common/logger"
	"github.com/fuchsia74/apiconform/schema"
)

// document mirrors the on-disk suite layout. YAML is the canonical format;
// JSON documents decode through the same path since YAML is a superset.
type document struct {
	Provider       string           `yaml:"provider" validate:"required"`
	Endpoint       string           `yaml:"endpoint" validate:"required"`
	Schemas        yaml.Node        `yaml:"schemas"`
	ResponseSchema string           `yaml:"response_schema"`
	BaseParams     map[string]any   `yaml:"base_params"`
	ParamWrapper   string           `yaml:"param_wrapper"`
	Tests          []caseDocument   `yaml:"tests" validate:"required,min=1,dive"`
}

type caseDocument struct {
	Name             string           `yaml:"name" validate:"required"`
	Description      string           `yaml:"description"`
	Params           map[string]any   `yaml:"params"`
	Schema           string           `yaml:"schema"`
	UnsupportedParam string           `yaml:"unsupported_param"`
	Stream           bool             `yaml:"stream"`
	OverrideBase     bool             `yaml:"override_base"`
	SkipParamWrapper bool             `yaml:"skip_param_wrapper"`
	EndpointOverride string           `yaml:"endpoint_override"`
	Parameterize     map[string][]any `yaml:"parameterize"`
	StreamRules      *streamRulesDoc  `yaml:"stream_rules"`
	UploadFiles      map[string]string `yaml:"upload_files"`
}

type streamRulesDoc struct {
	RequiredEvents []string `yaml:"required_events"`
	ChunkSchema    string   `yaml:"chunk_schema"`
	MinChunks      int      `yaml:"min_chunks"`
	TextField      string   `yaml:"text_field"`
	EventField     string   `yaml:"event_field"`
}

var validate = validator.New()

// Load reads one suite document. Structural problems in the document abort
// the load with a descriptive error; they never surface later as silently
// skipped tests.
func Load(path string) (*Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read suite %s", path)
	}
	return Parse(raw, suiteName(path))
}

// Parse decodes and resolves a suite document.
func Parse(raw []byte, name string) (*Suite, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode suite %s", name)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, errors.Wrapf(err, "suite %s failed document validation", name)
	}

	schemas, err := schema.ParseLibrary(&doc.Schemas)
	if err != nil {
		return nil, errors.Wrapf(err, "suite %s", name)
	}

	s := &Suite{
		Name:            name,
		Provider:        doc.Provider,
		Endpoint:        doc.Endpoint,
		Schemas:         schemas,
		BaseParams:      doc.BaseParams,
		ParamWrapperKey: doc.ParamWrapper,
	}
	if s.BaseParams == nil {
		s.BaseParams = map[string]any{}
	}

	defaultSchema, err := resolveSchema(schemas, doc.ResponseSchema, name)
	if err != nil {
		return nil, err
	}

	for _, tc := range doc.Tests {
		c := Case{
			Name:             tc.Name,
			Description:      tc.Description,
			Params:           tc.Params,
			UnsupportedParam: tc.UnsupportedParam,
			Stream:           tc.Stream,
			OverrideBase:     tc.OverrideBase,
			SkipParamWrapper: tc.SkipParamWrapper,
			EndpointOverride: tc.EndpointOverride,
			UploadFiles:      tc.UploadFiles,
			Schema:           defaultSchema,
		}
		if c.Params == nil {
			c.Params = map[string]any{}
		}
		if tc.Schema != "" {
			c.Schema, err = resolveSchema(schemas, tc.Schema, name)
			if err != nil {
				return nil, err
			}
		}
		if tc.StreamRules != nil {
			c.StreamRules, err = buildStreamRules(schemas, tc.StreamRules, name)
			if err != nil {
				return nil, err
			}
		}

		if len(tc.Parameterize) > 0 {
			variants, err := expandCase(c, tc.Parameterize)
			if err != nil {
				return nil, errors.Wrapf(err, "suite %s", name)
			}
			s.Cases = append(s.Cases, variants...)
			continue
		}
		s.Cases = append(s.Cases, c)
	}

	return s, nil
}

// LoadDir loads every suite document under dir. An unloadable suite is
// skipped with a warning; it never stops its siblings.
func LoadDir(dir string) ([]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read suite directory %s", dir)
	}

	var suites []*Suite
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := Load(path)
		if err != nil {
			logger.Logger.Warn("skipping unloadable suite",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func resolveSchema(schemas map[string]*schema.Object, ref, suiteName string) (*schema.Object, error) {
	if ref == "" {
		return nil, nil
	}
	obj, ok := schemas[ref]
	if !ok {
		return nil, errors.Errorf("suite %s references undeclared schema %q", suiteName, ref)
	}
	return obj, nil
}

func buildStreamRules(schemas map[string]*schema.Object, doc *streamRulesDoc, suiteName string) (*StreamRules, error) {
	rules := &StreamRules{
		RequiredEvents: doc.RequiredEvents,
		MinChunks:      doc.MinChunks,
		TextField:      doc.TextField,
		EventField:     doc.EventField,
	}
	if rules.MinChunks < 1 {
		rules.MinChunks = 1
	}
	if rules.TextField == "" {
		rules.TextField = "content"
	}
	if rules.EventField == "" {
		rules.EventField = "type"
	}
	if doc.ChunkSchema != "" {
		obj, err := resolveSchema(schemas, doc.ChunkSchema, suiteName)
		if err != nil {
			return nil, err
		}
		rules.ChunkSchema = obj
	}
	return rules, nil
}

func suiteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
