// Package graph implements a Provider that sends messages via the Microsoft Graph API.
package graph

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shineum/mailkit/internal/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message sendMailMessage `json:"message"`
}

// sendMailMessage represents the message portion of a sendMail request.
type sendMailMessage struct {
	Subject       string            `json:"subject"`
	Body          messageBody       `json:"body"`
	ToRecipients  []recipient       `json:"toRecipients"`
	CcRecipients  []recipient       `json:"ccRecipients,omitempty"`
	BccRecipients []recipient       `json:"bccRecipients,omitempty"`
	ReplyTo       []recipient       `json:"replyTo,omitempty"`
	Attachments   []graphAttachment `json:"attachments,omitempty"`
}

// messageBody represents the body of an email message.
type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// recipient represents an email recipient.
type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

// emailAddress represents an email address in a Graph API request.
type emailAddress struct {
	Address string `json:"address"`
}

// graphAttachment represents a file attachment in a Graph API request.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// tokenResponse represents the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

// graphError represents the error detail in a Graph API error response.
type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a built message into a Graph API sendMail
// request body. Multipart content maps its first non-attachment part to
// the body (HTML preferred) and its attachment parts to file attachments;
// any other content renders as a text body.
func buildSendMailRequest(msg *email.Message) *sendMailRequest {
	body := messageBody{ContentType: "text"}
	var attachments []graphAttachment

	switch content := msg.Content().(type) {
	case nil:
	case string:
		body.Content = content
		if strings.Contains(msg.ContentType(), "text/html") {
			body.ContentType = "html"
		}
	case *email.Multipart:
		for _, part := range content.Parts {
			if part.Filename != "" {
				attachments = append(attachments, graphAttachment{
					ODataType:    "#microsoft.graph.fileAttachment",
					Name:         part.Filename,
					ContentType:  part.ContentType,
					ContentBytes: base64.StdEncoding.EncodeToString(part.Body),
				})
				continue
			}
			if part.ContentType == "text/html" {
				body.ContentType = "html"
				body.Content = string(part.Body)
				continue
			}
			if body.Content == "" {
				body.Content = string(part.Body)
			}
		}
	default:
		body.Content = fmt.Sprint(content)
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:       msg.Subject(),
			Body:          body,
			ToRecipients:  buildRecipients(msg.Recipients(email.RecipientTo)),
			CcRecipients:  buildRecipients(msg.Recipients(email.RecipientCc)),
			BccRecipients: buildRecipients(msg.Recipients(email.RecipientBcc)),
			ReplyTo:       buildRecipients(msg.ReplyTo()),
			Attachments:   attachments,
		},
	}
}

// buildRecipients converts an address list into Graph recipients.
func buildRecipients(addrs []*mail.Address) []recipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, recipient{EmailAddress: emailAddress{Address: a.Address}})
	}
	return out
}
