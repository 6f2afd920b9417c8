package service

import (
	"context"
	"strings"
	"testing"

	"github.com/docwise/medkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenantRepo struct {
	tenants map[string]*domain.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[string]*domain.Tenant)}
}

func (r *fakeTenantRepo) Create(_ context.Context, tenant *domain.Tenant) error {
	for _, t := range r.tenants {
		if t.Name == tenant.Name {
			return domain.ErrTenantAlreadyExists
		}
	}
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *fakeTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func (r *fakeTenantRepo) GetByName(_ context.Context, name string) (*domain.Tenant, error) {
	for _, t := range r.tenants {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (r *fakeTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) {
	out := make([]*domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

type fakeKeyRepo struct {
	keys map[string]*domain.APIKey // by id
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: make(map[string]*domain.APIKey)}
}

func (r *fakeKeyRepo) Create(_ context.Context, key *domain.APIKey) error {
	for _, k := range r.keys {
		if k.KeyHash == key.KeyHash {
			return domain.ErrAPIKeyAlreadyExists
		}
	}
	r.keys[key.ID] = key
	return nil
}

func (r *fakeKeyRepo) GetByHash(_ context.Context, hash string) (*domain.APIKey, error) {
	for _, k := range r.keys {
		if k.KeyHash == hash {
			return k, nil
		}
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (r *fakeKeyRepo) GetByTenantID(_ context.Context, tenantID string) ([]*domain.APIKey, error) {
	var out []*domain.APIKey
	for _, k := range r.keys {
		if k.TenantID == tenantID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeKeyRepo) Revoke(_ context.Context, id string) error {
	k, ok := r.keys[id]
	if !ok {
		return domain.ErrAPIKeyNotFound
	}
	now := k.CreatedAt
	k.RevokedAt = &now
	return nil
}

type seqUUID struct{ n int }

func (g *seqUUID) NewString() string {
	g.n++
	return strings.Repeat("0", 7) + string(rune('0'+g.n%10))
}

func newAuthService() (*AuthService, *fakeTenantRepo, *fakeKeyRepo) {
	tenants := newFakeTenantRepo()
	keys := newFakeKeyRepo()
	return NewAuthService(tenants, keys, &seqUUID{}), tenants, keys
}

func TestCreateTenant(t *testing.T) {
	svc, _, _ := newAuthService()

	tenant, err := svc.CreateTenant(context.Background(), "praxis-nord")
	require.NoError(t, err)
	assert.NotEmpty(t, tenant.ID)
	assert.Equal(t, "praxis-nord", tenant.Name)

	_, err = svc.CreateTenant(context.Background(), "praxis-nord")
	assert.ErrorIs(t, err, domain.ErrTenantAlreadyExists)
}

func TestCreateTenantRequiresName(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.CreateTenant(context.Background(), "")
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestCreateAPIKeyAndValidate(t *testing.T) {
	svc, _, _ := newAuthService()

	tenant, err := svc.CreateTenant(context.Background(), "praxis-nord")
	require.NoError(t, err)

	token, err := svc.CreateAPIKey(context.Background(), tenant.ID, "laptop")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "mkb_"))
	assert.Len(t, token, len("mkb_")+64)

	tenantID, err := svc.ValidateAPIKey(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, tenantID)
}

func TestCreateAPIKeyUnknownTenant(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.CreateAPIKey(context.Background(), "missing", "laptop")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestValidateAPIKeyRejectsMalformedToken(t *testing.T) {
	svc, _, _ := newAuthService()

	for _, token := range []string{
		"",
		"mkb_short",
		"ntx_" + strings.Repeat("a", 64),
		"mkb_" + strings.Repeat("z", 64),
		strings.Repeat("a", 68),
	} {
		_, err := svc.ValidateAPIKey(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey, "token %q", token)
	}
}

func TestValidateAPIKeyUnknownToken(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.ValidateAPIKey(context.Background(), "mkb_"+strings.Repeat("a", 64))
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestValidateAPIKeyRevoked(t *testing.T) {
	svc, _, keys := newAuthService()

	tenant, err := svc.CreateTenant(context.Background(), "praxis-nord")
	require.NoError(t, err)
	token, err := svc.CreateAPIKey(context.Background(), tenant.ID, "laptop")
	require.NoError(t, err)

	for id := range keys.keys {
		require.NoError(t, svc.RevokeAPIKey(context.Background(), id))
	}

	_, err = svc.ValidateAPIKey(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}

func TestCreateAPIKeyWithToken(t *testing.T) {
	svc, _, _ := newAuthService()

	tenant, err := svc.CreateTenant(context.Background(), "praxis-nord")
	require.NoError(t, err)

	token := "mkb_" + strings.Repeat("ab", 32)
	require.NoError(t, svc.CreateAPIKeyWithToken(context.Background(), tenant.ID, "bootstrap", token))

	tenantID, err := svc.ValidateAPIKey(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, tenantID)

	err = svc.CreateAPIKeyWithToken(context.Background(), tenant.ID, "bootstrap", "not-a-token")
	require.Error(t, err)
}

func TestIsValidAPIToken(t *testing.T) {
	assert.True(t, IsValidAPIToken("mkb_"+strings.Repeat("0", 64)))
	assert.True(t, IsValidAPIToken("mkb_"+strings.Repeat("F", 64)))
	assert.False(t, IsValidAPIToken("mkb_"+strings.Repeat("0", 63)))
	assert.False(t, IsValidAPIToken("mkb_"+strings.Repeat("0", 65)))
	assert.False(t, IsValidAPIToken("MKB_"+strings.Repeat("0", 64)))
}
