package notification

import (
	"bytes"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shaharia-lab/webhookd/internal/eventbus"
)

// SubjectPrefix is prepended to every outgoing alert subject.
const SubjectPrefix = "webhookd alert - "

var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:24px;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" role="presentation"
         style="max-width:600px;width:100%;margin:0 auto;background-color:#ffffff;border-radius:8px;">
    <tr>
      <td style="background-color:#1f2937;padding:20px 32px;border-radius:8px 8px 0 0;">
        <span style="font-size:18px;font-weight:700;color:#ffffff;">webhookd</span>
      </td>
    </tr>
    <tr>
      <td style="padding:16px 32px;border-left:3px solid #dc2626;">
        <p style="margin:0;font-size:15px;font-weight:600;color:#111827;">{{.Subject}}</p>
      </td>
    </tr>
    <tr>
      <td style="padding:24px 32px;">
        <pre style="margin:0;font-size:13px;line-height:1.6;color:#374151;white-space:pre-wrap;">{{.Body}}</pre>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// alertTmpl renders the plain-text body of a delivery alert.
var alertTmpl = texttemplate.Must(texttemplate.New("alert").Parse(
	`A webhook delivery {{if eq .Status "success"}}succeeded{{else}}failed{{end}}.

Webhook:        {{.SubscriptionID}}
Topic:          {{.Topic}}
Source:         {{.Source}}
Delivery URL:   {{.DeliveryURL}}
Delivery ID:    {{.DeliveryID}}
Response code:  {{if .ResponseCode}}{{.ResponseCode}}{{else}}none{{end}}
Response:       {{.ResponseMessage}}
`))

// alertFields are the event payload values used by alertTmpl.
type alertFields struct {
	Status          string
	SubscriptionID  string
	Topic           string
	Source          string
	DeliveryURL     string
	DeliveryID      string
	ResponseCode    string
	ResponseMessage string
}

func alertFieldsFrom(payload map[string]string) alertFields {
	return alertFields{
		Status:          payload[eventbus.KeyStatus],
		SubscriptionID:  payload[eventbus.KeySubscriptionID],
		Topic:           payload[eventbus.KeyTopic],
		Source:          payload[eventbus.KeySource],
		DeliveryURL:     payload[eventbus.KeyDeliveryURL],
		DeliveryID:      payload[eventbus.KeyDeliveryID],
		ResponseCode:    payload[eventbus.KeyResponseCode],
		ResponseMessage: payload[eventbus.KeyResponseMessage],
	}
}

func buildSubject(subject string) string {
	return SubjectPrefix + subject
}

func buildAlertBody(payload map[string]string) (string, error) {
	var buf strings.Builder
	if err := alertTmpl.Execute(&buf, alertFieldsFrom(payload)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailHTML(subject, body string) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct{ Subject, Body string }{subject, body})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
