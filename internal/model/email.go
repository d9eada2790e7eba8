package model

import (
	"strings"
	"time"
)

// EmailAddress is the nested Graph address structure.
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Recipient wraps an address the way Microsoft Graph does.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Body carries the raw message body plus its content type ("html" or "text").
type Body struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Flag mirrors the Graph followupFlag object; used to skip flagged mail.
type Flag struct {
	FlagStatus string `json:"flagStatus"`
}

// Email is a mail message as returned by Microsoft Graph. Immutable once
// fetched; the orchestrator owns it for the duration of one run.
type Email struct {
	ID               string      `json:"id"`
	ParentFolderID   string      `json:"parentFolderId"`
	Subject          string      `json:"subject"`
	ReceivedDateTime time.Time   `json:"receivedDateTime"`
	Body             Body        `json:"body"`
	Sender           *Recipient  `json:"sender"`
	From             *Recipient  `json:"from"`
	ToRecipients     []Recipient `json:"toRecipients"`
	Importance       string      `json:"importance"`
	IsRead           bool        `json:"isRead"`
	Categories       []string    `json:"categories"`
	Flag             Flag        `json:"flag"`
}

// SenderEmail returns the lowercased sender address, or "" when missing.
func (e *Email) SenderEmail() string {
	if e.Sender == nil {
		return ""
	}
	return strings.ToLower(e.Sender.EmailAddress.Address)
}

// FromEmail returns the lowercased from address. Some messages carry both
// sender and from; the categorizer inspects both.
func (e *Email) FromEmail() string {
	if e.From == nil {
		return ""
	}
	return strings.ToLower(e.From.EmailAddress.Address)
}

// BodyContent returns the body content and a normalized content type,
// defaulting to "text" when the message has no typed body.
func (e *Email) BodyContent() (string, string) {
	contentType := e.Body.ContentType
	if contentType == "" {
		contentType = "text"
	}
	return e.Body.Content, contentType
}
