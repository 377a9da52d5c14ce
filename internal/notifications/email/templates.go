package email

import (
	"bytes"
	"errors"
	"html/template"

	"github.com/dkarpov/taskboard/internal/event"
)

var ErrRenderTemplate = errors.New("cannot render email template")

var taskCreatedTmpl = template.Must(template.New("task_created").Parse(`
<html>
  <body>
    <h3>New task created</h3>
    <p>Your task has been saved:</p>
    <blockquote>{{.TaskContent}}</blockquote>
  </body>
</html>`))

func renderTaskCreatedTemplate(msg event.Message) (string, error) {
	var buf bytes.Buffer

	if err := taskCreatedTmpl.Execute(&buf, msg); err != nil {
		return "", err
	}

	return buf.String(), nil
}
