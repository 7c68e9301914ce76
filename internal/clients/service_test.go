package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

type memoryClientRepo struct {
	nextID      int64
	clients     map[int64]Client
	attachments map[int64]Attachment
}

func newMemoryClientRepo() *memoryClientRepo {
	return &memoryClientRepo{nextID: 1, clients: map[int64]Client{}, attachments: map[int64]Attachment{}}
}

func (r *memoryClientRepo) List(_ context.Context, accountID int64, _ ListFilters) ([]Client, int, error) {
	var out []Client
	for _, c := range r.clients {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *memoryClientRepo) Get(_ context.Context, accountID, clientID int64) (Client, error) {
	c, ok := r.clients[clientID]
	if !ok || c.AccountID != accountID {
		return Client{}, httpx.ErrNotFound
	}
	return c, nil
}

func (r *memoryClientRepo) Create(_ context.Context, c Client) (Client, error) {
	c.ID = r.nextID
	r.nextID++
	r.clients[c.ID] = c
	return c, nil
}

func (r *memoryClientRepo) Update(_ context.Context, accountID, clientID int64, fields map[string]any) (Client, error) {
	c, err := r.Get(context.Background(), accountID, clientID)
	if err != nil {
		return Client{}, err
	}
	if name, ok := fields["name"]; ok {
		c.Name = name.(string)
	}
	if email, ok := fields["email"]; ok {
		c.Email = email.(string)
	}
	r.clients[clientID] = c
	return c, nil
}

func (r *memoryClientRepo) Delete(_ context.Context, accountID, clientID int64) error {
	if _, err := r.Get(context.Background(), accountID, clientID); err != nil {
		return err
	}
	delete(r.clients, clientID)
	for id, a := range r.attachments {
		if a.ClientID == clientID {
			delete(r.attachments, id)
		}
	}
	return nil
}

func (r *memoryClientRepo) ListAttachments(_ context.Context, _, clientID int64) ([]Attachment, error) {
	var out []Attachment
	for _, a := range r.attachments {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryClientRepo) InsertAttachment(_ context.Context, a Attachment) (Attachment, error) {
	a.ID = r.nextID
	r.nextID++
	r.attachments[a.ID] = a
	return a, nil
}

func (r *memoryClientRepo) GetAttachment(_ context.Context, _, _, attachmentID int64) (Attachment, error) {
	a, ok := r.attachments[attachmentID]
	if !ok {
		return Attachment{}, httpx.ErrNotFound
	}
	return a, nil
}

func (r *memoryClientRepo) DeleteAttachment(_ context.Context, _, _, attachmentID int64) error {
	if _, ok := r.attachments[attachmentID]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.attachments, attachmentID)
	return nil
}

var actor = shared.Identity{UserID: 7, AccountID: 1, Active: true}

func TestCreateNormalisesFields(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := NewService(repo, nil)

	client, err := svc.Create(context.Background(), actor, CreateRequest{
		Name:  "  Acme GmbH  ",
		Email: "Billing@Acme.Test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", client.Name)
	assert.Equal(t, "billing@acme.test", client.Email)
}

func TestUpdateRejectsBlankName(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := NewService(repo, nil)
	client, err := svc.Create(context.Background(), actor, CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	blank := "   "
	_, err = svc.Update(context.Background(), actor, client.ID, UpdateRequest{Name: &blank})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUploadEnforcesAllowlist(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := NewService(repo, nil)
	client, err := svc.Create(context.Background(), actor, CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), actor, client.ID, "run.exe", "application/x-msdownload", []byte{1})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	attachment, err := svc.Upload(context.Background(), actor, client.ID, "contract.pdf", "application/pdf", []byte("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), attachment.ByteSize)
	assert.NotEmpty(t, attachment.StorageKey)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := NewService(repo, nil)
	client, err := svc.Create(context.Background(), actor, CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), actor, client.ID, "empty.pdf", "application/pdf", nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteRemovesAttachments(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := NewService(repo, nil)
	client, err := svc.Create(context.Background(), actor, CreateRequest{Name: "Acme"})
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), actor, client.ID, "contract.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), actor, client.ID))
	assert.Empty(t, repo.attachments)
	_, err = svc.Get(context.Background(), actor.AccountID, client.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
