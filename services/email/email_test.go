package emailsvc

import (
	"encoding/json"
	"net/mail"
	"testing"
	texttmpl "text/template"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
)

type nopLogger struct{ errors []string }

func (l *nopLogger) Debug(string, ...interface{})       {}
func (l *nopLogger) Info(string, ...interface{})        {}
func (l *nopLogger) Warn(string, ...interface{})        {}
func (l *nopLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
func (l *nopLogger) Fatal(string, ...interface{})       {}

var testConf = &core.Config{
	AppName: "Ratiba",
	Email:   core.EmailConfig{DefaultFrom: mail.Address{Name: "Ratiba", Address: "noreply@ratiba.test"}},
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	logger := &nopLogger{}
	svc := NewConsoleServiceMock(testConf, logger)
	tmpl := texttmpl.Must(texttmpl.New("t").Parse("Hello {{.}}"))

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "plain", BodyStr: "hi"},
		&core.EmailMessage{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "templated", Template: tmpl, TemplateData: "Ada"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hi"},
		&core.EmailMessage{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hi", sent[0].TextContent)
	assert.Equal(t, "Hello Ada", sent[1].TextContent)
	assert.Empty(t, logger.errors)
}

func TestConsoleService_format(t *testing.T) {
	svc := NewConsoleServiceMock(testConf, &nopLogger{})
	out := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject:     "3 lessons scheduled",
		TextContent: "Created 3 lessons",
	})

	assert.Contains(t, out, "Subject: [Ratiba] 3 lessons scheduled\r\n")
	assert.Contains(t, out, "To: \"Ada\" <ada@example.com>\r\n")
	assert.Contains(t, out, "Created 3 lessons")
	assert.NotContains(t, out, "CC:")
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConf, &nopLogger{}).(*sendgridService)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Bcc:         []mail.Address{{Address: "audit@example.com"}},
		Subject:     "3 lessons scheduled",
		TextContent: "Created 3 lessons",
	})

	var body struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
			Bcc []struct {
				Email string `json:"email"`
			} `json:"bcc"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(sgmail.GetRequestBody(m), &body))

	assert.Equal(t, "noreply@ratiba.test", body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Ratiba] 3 lessons scheduled", body.Personalizations[0].Subject)
	assert.Equal(t, "ada@example.com", body.Personalizations[0].To[0].Email)
	assert.Equal(t, "audit@example.com", body.Personalizations[0].Bcc[0].Email)
	require.Len(t, body.Content, 1)
	assert.Equal(t, "text/plain", body.Content[0].Type)
}
