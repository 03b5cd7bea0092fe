// Package prompttmpl compiles text/template prompts bound to one data type.
// Rendering fails on missing map keys and returns whitespace-trimmed text.
package prompttmpl

import (
	"fmt"
	"strings"
	"text/template"
)

type Prompt[T any] struct {
	name string
	tmpl *template.Template
}

func Compile[T any](name, source string, funcs template.FuncMap) (*Prompt[T], error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(funcs).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", name, err)
	}
	return &Prompt[T]{name: name, tmpl: tmpl}, nil
}

// MustCompile is Compile for package-level prompts embedded at build time.
func MustCompile[T any](name, source string, funcs template.FuncMap) *Prompt[T] {
	p, err := Compile[T](name, source, funcs)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Prompt[T]) Render(data T) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
