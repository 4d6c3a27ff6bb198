// Package email sends transactional mail over plain SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
)

// Links are the frontend URLs embedded in outgoing emails.
type Links struct {
	ActivationURL  string
	RecoveryURL    string
	CertificateURL string
}

type Email struct {
	address  string
	password string
	host     string
	port     string
	links    Links
}

func New(address string, password string, host string, port string, links Links) *Email {
	return &Email{
		address:  address,
		password: password,
		host:     host,
		port:     port,
		links:    links,
	}
}

var activationTmpl = template.Must(template.New("activation").Parse(`
<p>Welcome to Topgrade!</p>
<p>Activate your account by visiting <a href="{{.URL}}">{{.URL}}</a>
and entering the code below. The code expires shortly.</p>
<p><strong>{{.Token}}</strong></p>
`))

var recoveryTmpl = template.Must(template.New("recovery").Parse(`
<p>A password reset was requested for your Topgrade account.</p>
<p>Visit <a href="{{.URL}}">{{.URL}}</a> and enter the code below to pick
a new password. If you didn't ask for this, ignore this email.</p>
<p><strong>{{.Token}}</strong></p>
`))

var certificateTmpl = template.Must(template.New("certificate").Parse(`
<p>Congratulations {{.Name}}!</p>
<p>You completed <strong>{{.Program}}</strong>. Your certificate
<strong>{{.Serial}}</strong> is ready at
<a href="{{.URL}}">{{.URL}}</a>.</p>
`))

func (e *Email) SendActivationToken(token string, to string) error {
	data := struct{ URL, Token string }{e.links.ActivationURL, token}
	return e.send(to, "Activate your Topgrade account", activationTmpl, data)
}

func (e *Email) SendRecoveryToken(token string, to string) error {
	data := struct{ URL, Token string }{e.links.RecoveryURL, token}
	return e.send(to, "Reset your Topgrade password", recoveryTmpl, data)
}

// SendCertificate notifies a student that their course certificate has
// been issued.
func (e *Email) SendCertificate(name string, program string, serial string, to string) error {
	data := struct{ Name, Program, Serial, URL string }{name, program, serial, e.links.CertificateURL}
	return e.send(to, "Your Topgrade certificate is ready", certificateTmpl, data)
}

func (e *Email) send(to string, subject string, tmpl *template.Template, data interface{}) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("rendering email body: %w", err)
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", e.address)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	var auth smtp.Auth
	if e.password != "" {
		auth = smtp.PlainAuth("", e.address, e.password, e.host)
	}

	addr := e.host + ":" + e.port
	if err := smtp.SendMail(addr, auth, e.address, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}

	return nil
}
