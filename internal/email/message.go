package email

import (
	"bufio"
	"bytes"
	"fmt"
	"net/textproto"
	"strings"
	"time"
)

// TemplateHeader carries the template id so capture senders can key on it.
const TemplateHeader = "X-Campusnest-Template"

// BuildMessage assembles a plain-text RFC 5322 message.
func BuildMessage(from string, to []string, subject, body, templateID string, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	if templateID != "" {
		fmt.Fprintf(&b, "%s: %s\r\n", TemplateHeader, templateID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// ParseMessage splits a raw message into headers and body.
func ParseMessage(raw []byte) (textproto.MIMEHeader, string, error) {
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	hdr, err := r.ReadMIMEHeader()
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse email headers: %w", err)
	}
	var body strings.Builder
	for {
		line, err := r.ReadLine()
		if err != nil {
			break
		}
		if body.Len() > 0 {
			body.WriteByte('\n')
		}
		body.WriteString(line)
	}
	return hdr, body.String(), nil
}
