package dian

import (
	"errors"
	"strings"

	"github.com/beevik/etree"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Acceptance signals of the authority
const (
	SuccessStatusCode    = "00"
	LegacySuccessMessage = "Procesado Correctamente"
)

var errNoStatus = errors.New("response carries no status")

// Reply is the parsed authority response
type Reply struct {
	StatusCode     string
	StatusMessage  string
	ConfirmationID string
	Errors         []string
}

// Accepted reports the authority verdict. Either signal is sufficient: the
// status code, or the legacy message text.
func (r *Reply) Accepted() bool {
	return r.StatusCode == SuccessStatusCode || r.StatusMessage == LegacySuccessMessage
}

// ParseReply reads a SOAP response by local element names, ignoring
// namespaces
func ParseReply(raw []byte) (*Reply, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errNoStatus
	}

	status := firstText(doc, "StatusCode")
	message := firstText(doc, "StatusMessage", "StatusDescription")
	if status == "" && message == "" {
		return nil, errNoStatus
	}

	reply := &Reply{
		StatusCode:     status,
		StatusMessage:  message,
		ConfirmationID: firstText(doc, "UUID", "XmlDocumentKey"),
	}
	for _, group := range doc.FindElements("//ErrorMessage") {
		for _, s := range group.ChildElements() {
			if t := strings.TrimSpace(s.Text()); t != "" {
				reply.Errors = append(reply.Errors, t)
			}
		}
		if len(group.ChildElements()) == 0 {
			if t := strings.TrimSpace(group.Text()); t != "" {
				reply.Errors = append(reply.Errors, t)
			}
		}
	}
	return reply, nil
}

// Outcome converts the reply into a submission outcome
func (r *Reply) Outcome(raw []byte) document.SubmissionOutcome {
	out := document.SubmissionOutcome{
		Accepted:       r.Accepted(),
		ConfirmationID: r.ConfirmationID,
		StatusCode:     r.StatusCode,
		StatusMessage:  r.StatusMessage,
		RawResponse:    raw,
	}
	if out.Accepted {
		return out
	}
	out.ErrorCode = r.StatusCode
	if out.ErrorCode == "" {
		out.ErrorCode = document.ErrBusinessRejection.Code
	}
	out.ErrorMessage = r.StatusMessage
	if len(r.Errors) > 0 {
		details := strings.Join(r.Errors, "; ")
		if out.ErrorMessage == "" {
			out.ErrorMessage = details
		} else {
			out.ErrorMessage += ": " + details
		}
	}
	return out
}

func firstText(doc *etree.Document, tags ...string) string {
	for _, tag := range tags {
		if el := doc.FindElement("//" + tag); el != nil {
			if t := strings.TrimSpace(el.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}
