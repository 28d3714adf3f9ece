package notification

import (
	"bytes"
	"fmt"
	"text/template"
)

const TemplateJobMatch = "job_match"

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]messageTemplate{
	TemplateJobMatch: {
		subject: template.Must(template.New("job_match_subject").Parse(
			`New job match: {{.job_title}}`)),
		body: template.Must(template.New("job_match_body").Parse(
			`{{.job_title}}{{with .company}} at {{.}}{{end}}{{with .location}} ({{.}}){{end}} matches your resume with a score of {{.match_score}}/100.`)),
	},
}

// Render returns the subject and body to send. Literal Subject and Body
// win over the template output.
func (i Intent) Render() (string, string, error) {
	subject, body := i.Subject, i.Body
	if i.Template == "" {
		return subject, body, nil
	}

	t, ok := templates[i.Template]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown template %q", ErrInvalidIntent, i.Template)
	}

	data := make(map[string]any, len(i.Data)+1)
	for k, v := range i.Data {
		data[k] = v
	}
	if _, ok := data["match_score"]; !ok && i.MatchScore != nil {
		data["match_score"] = *i.MatchScore
	}

	if subject == "" {
		var buf bytes.Buffer
		if err := t.subject.Execute(&buf, data); err != nil {
			return "", "", fmt.Errorf("render subject: %w", err)
		}
		subject = buf.String()
	}
	if body == "" {
		var buf bytes.Buffer
		if err := t.body.Execute(&buf, data); err != nil {
			return "", "", fmt.Errorf("render body: %w", err)
		}
		body = buf.String()
	}
	return subject, body, nil
}
