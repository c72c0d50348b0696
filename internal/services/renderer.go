package services

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/skip2/go-qrcode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const qrImageName = "code.png"

func init() {
	en := language.English
	message.SetString(en, "subject.zero_balance", "Your supply credit is used up")
	message.SetString(en, "subject.negative_balance", "Your supply credit is at the limit (%d)")
	message.SetString(en, "subject.operator_threshold", "%s reached the alert threshold (balance %d)")
	message.SetString(en, "subject.transaction_created", "New transaction: %d (balance %d)")

	de := language.German
	message.SetString(de, "subject.zero_balance", "Dein Guthaben ist aufgebraucht")
	message.SetString(de, "subject.negative_balance", "Dein Guthaben hat das Limit erreicht (%d)")
	message.SetString(de, "subject.operator_threshold", "%s hat die Warnschwelle erreicht (Guthaben %d)")
	message.SetString(de, "subject.transaction_created", "Neue Buchung: %d (Guthaben %d)")
}

// NotificationContext is everything a notification may mention.
type NotificationContext struct {
	Reference   string
	Account     models.Account
	Balance     int64
	Delta       int64
	Limit       int64
	Description string
	At          time.Time
}

type templateData struct {
	Subject     string
	AccountID   int64
	Name        string
	Code        string
	Balance     int64
	Delta       int64
	Limit       int64
	Threshold   int64
	Description string
	Reference   string
	At          string
	QRImage     string
}

// Renderer turns an event into a subject plus HTML and text bodies.
type Renderer struct {
	html    *htmltemplate.Template
	text    *texttemplate.Template
	printer *message.Printer
}

func NewRenderer(lang string) (*Renderer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("mail language %q: %w", lang, err)
	}

	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}

	return &Renderer{html: html, text: text, printer: message.NewPrinter(tag)}, nil
}

// Render produces the message for an event. When withQR is set the HTML
// references an inline QR image of the account's presentation code, which
// is returned alongside.
func (r *Renderer) Render(event models.EventType, nc NotificationContext, withQR bool) (Message, error) {
	data := templateData{
		Subject:     r.subject(event, nc),
		AccountID:   nc.Account.ID,
		Name:        nc.Account.Name,
		Code:        nc.Account.Code,
		Balance:     nc.Balance,
		Delta:       nc.Delta,
		Limit:       nc.Limit,
		Description: nc.Description,
		Reference:   nc.Reference,
		At:          nc.At.UTC().Format(time.RFC1123),
	}
	if nc.Account.OperatorThreshold != nil {
		data.Threshold = *nc.Account.OperatorThreshold
	}

	msg := Message{Subject: data.Subject}
	if withQR {
		png, err := qrcode.Encode(nc.Account.Code, qrcode.Medium, 256)
		if err != nil {
			return Message{}, fmt.Errorf("qr code: %w", err)
		}
		data.QRImage = qrImageName
		msg.InlineImage = &InlineImage{Name: qrImageName, Data: png}
	}

	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, string(event)+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", event, err)
	}
	if err := r.text.ExecuteTemplate(&text, string(event)+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", event, err)
	}
	msg.HTML = html.String()
	msg.Text = text.String()
	return msg, nil
}

func (r *Renderer) subject(event models.EventType, nc NotificationContext) string {
	key := "subject." + string(event)
	switch event {
	case models.EventNegativeBalance:
		return r.printer.Sprintf(key, nc.Limit)
	case models.EventOperatorThreshold:
		return r.printer.Sprintf(key, nc.Account.Name, nc.Balance)
	case models.EventTransaction:
		return r.printer.Sprintf(key, nc.Delta, nc.Balance)
	default:
		return r.printer.Sprintf(key)
	}
}
