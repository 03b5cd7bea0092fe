package prompttmpl

import (
	"strings"
	"testing"
	"text/template"
)

func TestRenderTrimsAndRejectsMissingKey(t *testing.T) {
	t.Parallel()

	p := MustCompile[map[string]string]("t", "\n  hello {{.Name}}  \n", nil)
	got, err := p.Render(map[string]string{"Name": "greg"})
	if err != nil || got != "hello greg" {
		t.Fatalf("Render() = %q, %v; want %q", got, err, "hello greg")
	}
	_, err = p.Render(map[string]string{})
	if err == nil || !strings.Contains(err.Error(), "render prompt t") {
		t.Fatalf("Render(missing key) error = %v, want named render error", err)
	}
}

func TestCompileWithFuncs(t *testing.T) {
	t.Parallel()

	p, err := Compile[string]("t", "{{upper .}}", template.FuncMap{"upper": strings.ToUpper})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got, _ := p.Render("x"); got != "X" {
		t.Fatalf("Render() = %q, want X", got)
	}
	if _, err := Compile[string]("bad", "{{", nil); err == nil {
		t.Fatalf("Compile(bad) expected error")
	}
}
