package parser

import (
	"github.com/deicod/inherit/nodes"
)

// ParseTemplate parses the given template string with a default environment
func ParseTemplate(template string) (*nodes.Template, error) {
	return ParseTemplateWithEnv(&Environment{}, template, "template", "")
}

// ParseTemplateWithEnv parses a template using the given environment.
// Returns the AST or an error with position information.
func ParseTemplateWithEnv(env *Environment, template, name, filename string) (*nodes.Template, error) {
	parser, err := NewParser(env, template, name, filename)
	if err != nil {
		return nil, err
	}

	return parser.Parse()
}
