package jsontemplate

import (
	"fmt"

	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
)

// compiledText is a precompiled Jinja-subset source, reused across every
// Expand call against the JsonTemplate that owns it.
type compiledText struct {
	source   string
	template *exec.Template
}

func compileText(source string) (*compiledText, error) {
	tpl, err := gonja.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("compiling text placeholder: %w", err)
	}
	return &compiledText{source: source, template: tpl}, nil
}

func (c *compiledText) render(vars map[string]interface{}) (string, error) {
	out, err := c.template.ExecuteToString(exec.NewContext(vars))
	if err != nil {
		return "", fmt.Errorf("rendering text placeholder: %w", err)
	}
	return out, nil
}
