package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

type Kind string

const (
	KindPaymentSucceeded Kind = "payment_succeeded"
	KindPaymentFailed    Kind = "payment_failed"
	KindRenewalReminder  Kind = "renewal_reminder"
	KindReviewApproved   Kind = "review_approved"
	KindReviewRejected   Kind = "review_rejected"
	KindPromotionExpired Kind = "promotion_expired"
)

// Message is one notification for one recipient. Data feeds the kind's
// templates.
type Message struct {
	Kind Kind
	// UserID identifies the recipient in logs; To never gets logged.
	UserID uint
	To     string
	Name   string
	Data   map[string]string
}

type rendered struct {
	Subject string
	Text    string
	HTML    string
}

type templateSet struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

func newTemplateSet(kind Kind, subject, text, html string) templateSet {
	name := string(kind)
	return templateSet{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		text:    template.Must(template.New(name + ".text").Option("missingkey=zero").Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Option("missingkey=zero").Parse(html)),
	}
}

var templates = map[Kind]templateSet{
	KindPaymentSucceeded: newTemplateSet(KindPaymentSucceeded,
		"Payment received",
		"Hi {{.Name}},\n\nWe received your payment of {{.Data.amount}} {{.Data.currency}}. Thank you!\n",
		`<p>Hi {{.Name}},</p><p>We received your payment of <strong>{{.Data.amount}} {{.Data.currency}}</strong>. Thank you!</p>`,
	),
	KindPaymentFailed: newTemplateSet(KindPaymentFailed,
		"Payment failed",
		"Hi {{.Name}},\n\nYour payment could not be processed: {{.Data.reason}}\nPlease update your payment method.\n",
		`<p>Hi {{.Name}},</p><p>Your payment could not be processed: {{.Data.reason}}</p><p>Please update your payment method.</p>`,
	),
	KindRenewalReminder: newTemplateSet(KindRenewalReminder,
		"Your {{.Data.plan}} plan renews soon",
		"Hi {{.Name}},\n\nYour {{.Data.plan}} subscription renews on {{.Data.renews_on}} for {{.Data.amount}} {{.Data.currency}}.\n",
		`<p>Hi {{.Name}},</p><p>Your {{.Data.plan}} subscription renews on {{.Data.renews_on}} for {{.Data.amount}} {{.Data.currency}}.</p>`,
	),
	KindReviewApproved: newTemplateSet(KindReviewApproved,
		"Your review was published",
		"Hi {{.Name}},\n\nYour review of {{.Data.destination}} is now visible.\n",
		`<p>Hi {{.Name}},</p><p>Your review of {{.Data.destination}} is now visible.</p>`,
	),
	KindReviewRejected: newTemplateSet(KindReviewRejected,
		"Your review was not published",
		"Hi {{.Name}},\n\nYour review of {{.Data.destination}} was rejected: {{.Data.reason}}\n",
		`<p>Hi {{.Name}},</p><p>Your review of {{.Data.destination}} was rejected: {{.Data.reason}}</p>`,
	),
	KindPromotionExpired: newTemplateSet(KindPromotionExpired,
		"Promotion \"{{.Data.title}}\" has ended",
		"Hi {{.Name}},\n\nYour promotion \"{{.Data.title}}\" ended on {{.Data.end_date}} and is no longer shown.\n",
		`<p>Hi {{.Name}},</p><p>Your promotion &ldquo;{{.Data.title}}&rdquo; ended on {{.Data.end_date}} and is no longer shown.</p>`,
	),
}

func render(m Message) (rendered, error) {
	set, ok := templates[m.Kind]
	if !ok {
		return rendered{}, fmt.Errorf("no template for notification kind %q", m.Kind)
	}
	var subject, text, html bytes.Buffer
	if err := set.subject.Execute(&subject, m); err != nil {
		return rendered{}, fmt.Errorf("render subject: %w", err)
	}
	if err := set.text.Execute(&text, m); err != nil {
		return rendered{}, fmt.Errorf("render text: %w", err)
	}
	if err := set.html.Execute(&html, m); err != nil {
		return rendered{}, fmt.Errorf("render html: %w", err)
	}
	return rendered{Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}
