package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/jobs"
)

type profileRepoStub struct {
	users   map[string]*models.User
	updated []*models.User
	audit   []*models.AuditLog
}

func (p *profileRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := p.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (p *profileRepoStub) UpdateProfile(_ context.Context, user *models.User) error {
	clone := *user
	p.users[user.ID] = &clone
	p.updated = append(p.updated, &clone)
	return nil
}

func (p *profileRepoStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	p.audit = append(p.audit, log)
	return nil
}

type urlResolverStub struct{}

func (urlResolverStub) PublicURL(objectPath string) string { return "http://cdn.test/" + objectPath }

type enqueuerStub struct {
	jobs []jobs.Job
}

func (e *enqueuerStub) Enqueue(job jobs.Job) (string, error) {
	e.jobs = append(e.jobs, job)
	return "job-1", nil
}

func newProfileServiceForTest(t *testing.T) (*ProfileService, *profileRepoStub, *enqueuerStub) {
	avatar := "avatars/old.webp"
	repo := &profileRepoStub{users: map[string]*models.User{
		"u1": {ID: "u1", UniversityID: "univ-1", Email: "me@example.com", FullName: "Me", Role: models.RoleSeller, AvatarPath: &avatar, Active: true},
	}}
	shops := &shopRepoStub{owned: map[string]*models.Shop{"u1": {ID: "shop-1", Name: "Dorm Snacks"}}}
	queue := &enqueuerStub{}
	svc := NewProfileService(repo, shops, testPhoneNormalizer(t), urlResolverStub{}, queue, nil, nil)
	return svc, repo, queue
}

func TestProfileServiceGetIncludesShopAndAvatarURL(t *testing.T) {
	svc, _, _ := newProfileServiceForTest(t)

	profile, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, "http://cdn.test/avatars/old.webp", *profile.AvatarURL)
	require.NotNil(t, profile.Shop)
	assert.Equal(t, "shop-1", profile.Shop.ID)

	_, err = svc.Get(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestProfileServiceUpdateNormalizesPhoneAndReleasesAvatar(t *testing.T) {
	svc, repo, queue := newProfileServiceForTest(t)
	phoneNumber := "+251 91 234 5678"
	avatar := "avatars/new.webp"

	profile, err := svc.Update(context.Background(), "u1", UpdateProfileRequest{FullName: "  New Name ", Phone: &phoneNumber, AvatarPath: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.FullName)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, "+251912345678", *profile.Phone)
	assert.Equal(t, "http://cdn.test/avatars/new.webp", *profile.AvatarURL)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobDeleteAsset, queue.jobs[0].Type)
	assert.Equal(t, "avatars/old.webp", queue.jobs[0].Payload)
	require.Len(t, repo.audit, 1)
	assert.Equal(t, models.AuditActionProfileUpdate, repo.audit[0].Action)
}

func TestProfileServiceUpdateRejectsInvalidInput(t *testing.T) {
	svc, repo, _ := newProfileServiceForTest(t)
	short := "12345"
	_, err := svc.Update(context.Background(), "u1", UpdateProfileRequest{FullName: "Me", Phone: &short})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	wrongBucket := "flyers/me.webp"
	_, err = svc.Update(context.Background(), "u1", UpdateProfileRequest{FullName: "Me", AvatarPath: &wrongBucket})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Update(context.Background(), "u1", UpdateProfileRequest{FullName: "   "})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.updated)
}
