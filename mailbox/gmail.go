package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

type gmailAPI struct {
	svc *gmail.Service
}

// NewGmailAPI connects to Gmail with read-only scope using an OAuth client
// file and a previously authorised token file.
func NewGmailAPI(ctx context.Context, credentialsPath, tokenPath string) (MessageAPI, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, &SourceError{Op: "read credentials", Err: err}
	}
	conf, err := google.ConfigFromJSON(creds, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, &SourceError{Op: "parse credentials", Err: err}
	}

	tok, err := readToken(tokenPath)
	if err != nil {
		return nil, &SourceError{Op: "read token", Err: err}
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, tok)))
	if err != nil {
		return nil, &SourceError{Op: "create gmail service", Err: err}
	}
	return &gmailAPI{svc: svc}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return tok, nil
}

func (g *gmailAPI) ListMessageIDs(ctx context.Context, labelID string, max int64) ([]string, error) {
	resp, err := g.svc.Users.Messages.List(gmailUser).
		LabelIds(labelID).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (g *gmailAPI) GetPayload(ctx context.Context, id string) (*gmail.MessagePart, error) {
	msg, err := g.svc.Users.Messages.Get(gmailUser, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return msg.Payload, nil
}
