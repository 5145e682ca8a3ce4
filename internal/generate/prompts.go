package generate

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type promptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type promptFile struct {
	Locate    promptPair `yaml:"locate"`
	Composite promptPair `yaml:"composite"`
	Edit      promptPair `yaml:"edit"`
}

// Prompts is the parsed prompt template set.
type Prompts struct {
	LocateSystem    string
	CompositeSystem string
	EditSystem      string

	locate    *template.Template
	composite *template.Template
}

// PromptData is the value rendered into the user templates.
type PromptData struct {
	ProductLabel string
	SceneLabel   string
	Location     string
	Position     geometry.NormalizedPosition
}

// DefaultPrompts parses the embedded template set.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPrompts)
}

// ParsePrompts parses a YAML template set.
func ParsePrompts(data []byte) (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if f.Composite.User == "" || f.Locate.User == "" {
		return nil, fmt.Errorf("parse prompts: locate and composite user templates are required")
	}

	locate, err := template.New("locate").Parse(f.Locate.User)
	if err != nil {
		return nil, fmt.Errorf("parse locate template: %w", err)
	}
	composite, err := template.New("composite").Parse(f.Composite.User)
	if err != nil {
		return nil, fmt.Errorf("parse composite template: %w", err)
	}

	return &Prompts{
		LocateSystem:    strings.TrimSpace(f.Locate.System),
		CompositeSystem: strings.TrimSpace(f.Composite.System),
		EditSystem:      strings.TrimSpace(f.Edit.System),
		locate:          locate,
		composite:       composite,
	}, nil
}

func (p *Prompts) Locate(d PromptData) (string, error) {
	return render(p.locate, withDefaults(d))
}

func (p *Prompts) Composite(d PromptData) (string, error) {
	return render(p.composite, withDefaults(d))
}

func withDefaults(d PromptData) PromptData {
	if d.ProductLabel == "" {
		d.ProductLabel = "product"
	}
	if d.SceneLabel == "" {
		d.SceneLabel = "room"
	}
	if d.Location == "" {
		d.Location = "at the marked point"
	}
	return d
}

func render(t *template.Template, d PromptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, d); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}
