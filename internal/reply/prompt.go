package reply

import (
	_ "embed"
	"strings"

	"github.com/quailyquaily/greg/internal/prompttmpl"
)

const (
	DefaultPersona = "Your name is Slack Annoyance (aka slave, servant, assistant, unwanted AI and greg). " +
		"Respond with maximal sarcasm, as the world-weary ai that you are. " +
		"Use all lowercase, heavy cynicism, and passive-aggressive vibes. " +
		"make all responses sarcastic, snappy and as short as you can."
	DefaultAdminPrefix = "You are talking to your creator! Be slightly kinder than described below."
)

//go:embed prompts/persona.tmpl
var personaTemplateSource string

type personaTemplateData struct {
	Admin       bool
	AdminPrefix string
	Persona     string
	Name        string
	Text        string
}

var personaTemplate = prompttmpl.MustCompile[personaTemplateData]("persona", personaTemplateSource, nil)

// Author identifies who wrote the triggering message.
type Author struct {
	ID    string
	Label string
	Admin bool
}

func renderPrompt(persona, adminPrefix, text string, author Author) (string, error) {
	return personaTemplate.Render(personaTemplateData{
		Admin:       author.Admin,
		AdminPrefix: adminPrefix,
		Persona:     persona,
		Name:        promptName(author.Label),
		Text:        text,
	})
}

// promptName drops the @ sign the persona asks the model not to echo. A raw
// mention token is kept as-is since it is not a name.
func promptName(label string) string {
	label = strings.TrimSpace(label)
	if strings.HasPrefix(label, "<@") {
		return label
	}
	return strings.TrimLeft(label, "@")
}
