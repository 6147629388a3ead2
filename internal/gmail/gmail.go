// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gmail

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"invoicevault/internal/message"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	gmail_api "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	ReadonlyScope = gmail_api.GmailReadonlyScope
	ModifyScope   = gmail_api.GmailModifyScope

	// See https://developers.google.com/gmail/api/v1/reference/quota
	quotaUnitsPerMessagesGet    = 5
	quotaUnitsPerAttachmentsGet = 5
	quotaUnitsPerMessagesList   = 5
	quotaUnitsPerMessagesModify = 5
	quotaUnitsPerLabelsList     = 1
	quotaUnitsPerLabelsCreate   = 5

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond
)

var (
	ErrMessageNotFound = errors.New("gmail message not found")
)

// metadataHeaders are the only envelope headers the pipeline consumes;
// metadata-granularity fetches request nothing else.
var metadataHeaders = []string{"Delivered-To", "To", "Date"}

// Service provides access to messages stored in Google's GMail
// system.
type Service struct {
	service *gmail_api.Service
	limiter *rate.Limiter
}

// Label is one user-visible label and its permanent identifier.
type Label struct {
	ID   string
	Name string
}

func New(ctx context.Context, client *http.Client) (*Service, error) {
	s, err := gmail_api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	l := rate.NewLimiter(rateLimitPerSecond, rateLimitBurst)
	return &Service{service: s, limiter: l}, nil
}

// ListMessages walks every page of results for the given search
// expression, invoking handler once per message identifier.  Each call
// re-queries live state; the walk is not restartable.  A page with
// zero items does not end the walk while a continuation cursor is
// still present.  On error the handler invocations already made stand;
// the caller decides whether a partial listing is acceptable.
func (s *Service) ListMessages(ctx context.Context, q string, handler func(message.ID) error) error {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
		return err
	}
	msgs := gmail_api.NewUsersMessagesService(s.service)
	req := msgs.List("me").Q(q).IncludeSpamTrash(false)
	total := 0
	err := req.Pages(ctx, func(page *gmail_api.ListMessagesResponse) (err error) {
		total += len(page.Messages)
		slog.Debug("listed page of messages", "count", len(page.Messages), "total", total)
		for _, msg := range page.Messages {
			if err := handler(message.ID(msg.Id)); err != nil {
				return err
			}
		}
		if page.NextPageToken != "" {
			err = s.limiter.WaitN(ctx, quotaUnitsPerMessagesList)
		}
		return
	})
	if err != nil {
		return errors.Wrap(err, "unable to list messages")
	}
	slog.Debug("done listing messages", "total", total)
	return nil
}

func (s *Service) getMessage(call *gmail_api.UsersMessagesGetCall) (*gmail_api.Message, error) {
	msg, err := call.Do()
	if err == nil {
		return msg, nil
	}
	switch cause := errors.Cause(err).(type) {
	case *googleapi.Error:
		if cause.Code == http.StatusNotFound {
			for _, item := range cause.Errors {
				if item.Reason == "notFound" {
					err = ErrMessageNotFound
				}
			}
		}
	}
	return nil, err
}

// GetMetadata fetches one message at metadata granularity: the headers
// the interpreter consumes plus the label-id set.
func (s *Service) GetMetadata(ctx context.Context, id message.ID) (*message.Metadata, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesGet); err != nil {
		return nil, err
	}
	msg, err := s.getMessage(gmail_api.NewUsersMessagesService(s.service).Get("me", string(id)).
		Context(ctx).Format("metadata").MetadataHeaders(metadataHeaders...))
	if err != nil {
		return nil, errors.Wrapf(err, "getting metadata for message %v", id)
	}
	m := &message.Metadata{
		ID:       id,
		Headers:  make(map[string]string),
		LabelIDs: msg.LabelIds,
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			m.Headers[strings.ToLower(h.Name)] = h.Value
		}
	}
	return m, nil
}

// GetFull fetches one message at full granularity and converts its
// content-part tree.
func (s *Service) GetFull(ctx context.Context, id message.ID) (*message.Full, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesGet); err != nil {
		return nil, err
	}
	msg, err := s.getMessage(gmail_api.NewUsersMessagesService(s.service).Get("me", string(id)).
		Context(ctx).Format("full"))
	if err != nil {
		return nil, errors.Wrapf(err, "getting message %v", id)
	}
	return &message.Full{ID: id, Root: convertPart(msg.Payload)}, nil
}

func convertPart(p *gmail_api.MessagePart) *message.Part {
	if p == nil {
		return nil
	}
	part := &message.Part{
		Filename: p.Filename,
		MIMEType: p.MimeType,
	}
	if p.Body != nil {
		part.AttachmentID = p.Body.AttachmentId
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, convertPart(child))
	}
	return part
}

// GetAttachment fetches and transport-decodes the raw bytes of one
// attachment part.
func (s *Service) GetAttachment(ctx context.Context, owner message.ID, attachmentID string) ([]byte, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerAttachmentsGet); err != nil {
		return nil, err
	}
	body, err := gmail_api.NewUsersMessagesAttachmentsService(s.service).
		Get("me", string(owner), attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "getting attachment %v of message %v", attachmentID, owner)
	}
	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		// The API pads attachment bodies, but raw payloads have
		// shipped unpadded before.
		data, err = base64.RawURLEncoding.DecodeString(body.Data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding attachment %v of message %v", attachmentID, owner)
	}
	return data, nil
}

// ListLabels returns every label in the mailbox.
func (s *Service) ListLabels(ctx context.Context) ([]Label, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerLabelsList); err != nil {
		return nil, err
	}
	resp, err := gmail_api.NewUsersLabelsService(s.service).List("me").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list labels")
	}
	labels := make([]Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name})
	}
	return labels, nil
}

// CreateLabel creates a user label and returns its identifier.
func (s *Service) CreateLabel(ctx context.Context, name string) (string, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerLabelsCreate); err != nil {
		return "", err
	}
	l, err := gmail_api.NewUsersLabelsService(s.service).Create("me", &gmail_api.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", errors.Wrapf(err, "unable to create label %q", name)
	}
	return l.Id, nil
}

// EnsureLabel returns the identifier for the named label, creating the
// label when it does not exist.
func (s *Service) EnsureLabel(ctx context.Context, name string) (string, error) {
	labels, err := s.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if l.Name == name {
			return l.ID, nil
		}
	}
	slog.Info("label not found, creating it", "name", name)
	return s.CreateLabel(ctx, name)
}

// ApplyLabel adds a label to a message.  Applying a label the message
// already carries is a remote no-op, so the call is idempotent.
func (s *Service) ApplyLabel(ctx context.Context, id message.ID, labelID string) error {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesModify); err != nil {
		return err
	}
	_, err := gmail_api.NewUsersMessagesService(s.service).Modify("me", string(id),
		&gmail_api.ModifyMessageRequest{AddLabelIds: []string{labelID}}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "unable to label message %v", id)
	}
	return nil
}
