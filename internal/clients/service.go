package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// maxAttachmentSize caps uploads at 10 MiB.
const maxAttachmentSize = 10 << 20

// RepositoryPort is what the service needs from storage.
type RepositoryPort interface {
	List(ctx context.Context, accountID int64, f ListFilters) ([]Client, int, error)
	Get(ctx context.Context, accountID, clientID int64) (Client, error)
	Create(ctx context.Context, c Client) (Client, error)
	Update(ctx context.Context, accountID, clientID int64, fields map[string]any) (Client, error)
	Delete(ctx context.Context, accountID, clientID int64) error
	ListAttachments(ctx context.Context, accountID, clientID int64) ([]Attachment, error)
	InsertAttachment(ctx context.Context, a Attachment) (Attachment, error)
	GetAttachment(ctx context.Context, accountID, clientID, attachmentID int64) (Attachment, error)
	DeleteAttachment(ctx context.Context, accountID, clientID, attachmentID int64) error
}

// Service implements the client directory operations.
type Service struct {
	repo     RepositoryPort
	recorder *activity.Recorder
}

func NewService(repo RepositoryPort, recorder *activity.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

func (s *Service) List(ctx context.Context, accountID int64, f ListFilters) ([]Client, shared.Pagination, error) {
	clients, total, err := s.repo.List(ctx, accountID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	req := shared.NewPageRequest(f.Page, f.PerPage)
	return clients, shared.NewPagination(req, total), nil
}

func (s *Service) Get(ctx context.Context, accountID, clientID int64) (Client, error) {
	return s.repo.Get(ctx, accountID, clientID)
}

func (s *Service) Create(ctx context.Context, actor shared.Identity, req CreateRequest) (Client, error) {
	client, err := s.repo.Create(ctx, Client{
		AccountID:   actor.AccountID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		Address:     req.Address,
		Notes:       req.Notes,
	})
	if err != nil {
		return Client{}, err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "client_created",
		SubjectType: "Client",
		SubjectID:   &client.ID,
		Metadata:    map[string]any{"name": client.Name},
	})
	return client, nil
}

func (s *Service) Update(ctx context.Context, actor shared.Identity, clientID int64, req UpdateRequest) (Client, error) {
	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return Client{}, httpx.NewValidationError(httpx.FieldError{Field: "name", Message: "can't be blank"})
		}
		fields["name"] = name
	}
	if req.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.CompanyName != nil {
		fields["company_name"] = *req.CompanyName
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if len(fields) == 0 {
		return s.repo.Get(ctx, actor.AccountID, clientID)
	}
	client, err := s.repo.Update(ctx, actor.AccountID, clientID, fields)
	if err != nil {
		return Client{}, err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "client_updated",
		SubjectType: "Client",
		SubjectID:   &client.ID,
	})
	return client, nil
}

// Delete removes the client; invoices that referenced it keep their
// data but lose the association.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, clientID int64) error {
	client, err := s.repo.Get(ctx, actor.AccountID, clientID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.AccountID, clientID); err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "client_deleted",
		SubjectType: "Client",
		SubjectID:   &client.ID,
		Metadata:    map[string]any{"name": client.Name},
	})
	return nil
}

func (s *Service) ListAttachments(ctx context.Context, accountID, clientID int64) ([]Attachment, error) {
	if _, err := s.repo.Get(ctx, accountID, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, accountID, clientID)
}

// Upload stores a file against the client after checking the
// content-type allowlist and the size cap.
func (s *Service) Upload(ctx context.Context, actor shared.Identity, clientID int64, fileName, contentType string, data []byte) (Attachment, error) {
	if _, err := s.repo.Get(ctx, actor.AccountID, clientID); err != nil {
		return Attachment{}, err
	}
	if !AllowedContentType(contentType) {
		return Attachment{}, httpx.NewValidationError(httpx.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("content type %q is not allowed", contentType),
		})
	}
	if len(data) == 0 {
		return Attachment{}, httpx.NewValidationError(httpx.FieldError{Field: "file", Message: "is empty"})
	}
	if len(data) > maxAttachmentSize {
		return Attachment{}, httpx.NewValidationError(httpx.FieldError{Field: "file", Message: "is larger than 10 MB"})
	}

	attachment, err := s.repo.InsertAttachment(ctx, Attachment{
		AccountID:   actor.AccountID,
		ClientID:    clientID,
		FileName:    fileName,
		ContentType: contentType,
		ByteSize:    int64(len(data)),
		StorageKey:  uuid.NewString(),
		Data:        data,
	})
	if err != nil {
		return Attachment{}, err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "attachment_uploaded",
		SubjectType: "Client",
		SubjectID:   &clientID,
		Metadata:    map[string]any{"file_name": fileName, "content_type": contentType},
	})
	return attachment, nil
}

func (s *Service) Download(ctx context.Context, accountID, clientID, attachmentID int64) (Attachment, error) {
	return s.repo.GetAttachment(ctx, accountID, clientID, attachmentID)
}

func (s *Service) DeleteAttachment(ctx context.Context, actor shared.Identity, clientID, attachmentID int64) error {
	if err := s.repo.DeleteAttachment(ctx, actor.AccountID, clientID, attachmentID); err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "attachment_deleted",
		SubjectType: "Client",
		SubjectID:   &clientID,
	})
	return nil
}
