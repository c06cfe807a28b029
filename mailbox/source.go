// Package mailbox finds candidate listing URLs in a labelled Gmail mailbox.
package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"google.golang.org/api/gmail/v1"

	"rental-scraper/utils"
)

// SourceError is any failure reading or decoding the mailbox. It is fatal to
// the run.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("mailbox: %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// MessageAPI is the part of the Gmail API the source reads through.
type MessageAPI interface {
	ListMessageIDs(ctx context.Context, labelID string, max int64) ([]string, error)
	GetPayload(ctx context.Context, id string) (*gmail.MessagePart, error)
}

// GmailSource extracts listing URLs from the HTML part of labelled messages.
type GmailSource struct {
	api      MessageAPI
	labelID  string
	htmlPart int
	pattern  *regexp.Regexp
	logger   *utils.Logger
}

// NewGmailSource builds a source matching "<baseURL>/<6 digits>" links.
func NewGmailSource(api MessageAPI, labelID string, htmlPart int, baseURL string, logger *utils.Logger) *GmailSource {
	return &GmailSource{
		api:      api,
		labelID:  labelID,
		htmlPart: htmlPart,
		pattern:  ListingPattern(baseURL),
		logger:   logger,
	}
}

// ListingPattern matches a listing link on the given site.
func ListingPattern(baseURL string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(strings.TrimRight(baseURL, "/")) + `/[0-9]{6}`)
}

// ListCandidateURLs reads up to maxItems messages and returns the distinct
// listing URLs in the order they were found.
func (s *GmailSource) ListCandidateURLs(ctx context.Context, maxItems int) ([]string, error) {
	if maxItems <= 0 {
		return nil, nil
	}

	ids, err := s.api.ListMessageIDs(ctx, s.labelID, int64(maxItems))
	if err != nil {
		return nil, &SourceError{Op: "list messages", Err: err}
	}
	s.logger.Info("[mailbox] %d message(s) under label %s", len(ids), s.labelID)

	var urls []string
	seen := make(map[string]struct{})
	for _, id := range ids {
		payload, err := s.api.GetPayload(ctx, id)
		if err != nil {
			return nil, &SourceError{Op: "get message " + id, Err: err}
		}

		body, err := s.htmlBody(payload)
		if err != nil {
			return nil, &SourceError{Op: "decode message " + id, Err: err}
		}

		found := 0
		for _, u := range ExtractURLs(body, s.pattern) {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
			found++
		}
		s.logger.Debug("[mailbox] message %s: %d new listing link(s)", id, found)
	}

	return urls, nil
}

func (s *GmailSource) htmlBody(payload *gmail.MessagePart) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("message has no payload")
	}
	if s.htmlPart < 0 || s.htmlPart >= len(payload.Parts) {
		return "", fmt.Errorf("message has %d part(s), want part %d", len(payload.Parts), s.htmlPart)
	}
	part := payload.Parts[s.htmlPart]
	if part.Body == nil {
		return "", fmt.Errorf("part %d has no body", s.htmlPart)
	}
	return DecodeBody(part.Body.Data)
}

// DecodeBody turns Gmail's base64url body data into text. Bytes are read as
// ISO-8859-1 so no input is rejected.
func DecodeBody(data string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", fmt.Errorf("base64: %w", err)
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("latin-1: %w", err)
	}
	return string(text), nil
}

// ExtractURLs returns every match of pattern in body, duplicates included.
func ExtractURLs(body string, pattern *regexp.Regexp) []string {
	return pattern.FindAllString(body, -1)
}
