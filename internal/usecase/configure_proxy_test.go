package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/legacybridge/internal/adapter/outbound/memstore"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/usecase"
)

const validConfigJSON = `{
  "baseUrl": "https://legacy.example.com",
  "apiType": "rest",
  "auth": {"mode": "bearer", "bearerToken": "s3cret"},
  "resources": [{
    "name": "customers",
    "endpoint": "/customers",
    "operations": {"list": {"rest": {"method": "GET", "path": "/customers"}}},
    "fieldMappings": [{"normalizedName": "id", "legacyName": "CUST_ID"}]
  }]
}`

func TestConfigureProxyUseCase_Lifecycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := memstore.New(discardLogger())
	uc, err := usecase.NewConfigureProxyUseCase(store, discardLogger())
	require.NoError(t, err)

	status, err := uc.Status(ctx)
	require.NoError(t, err)
	assert.False(status.Configured)

	_, err = uc.Current(ctx)
	assert.ErrorIs(err, usecase.ErrConfigNotSet)

	applied, err := uc.Configure(ctx, []byte(validConfigJSON))
	require.NoError(t, err)
	assert.Equal("***", applied.Auth.BearerToken)

	stored, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal("s3cret", stored.Auth.BearerToken, "store keeps the real secret")

	current, err := uc.Current(ctx)
	require.NoError(t, err)
	assert.Equal("***", current.Auth.BearerToken)
	assert.Equal("CUST_ID", current.Resources[0].FieldMappings[0].LegacyName)

	status, err = uc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(usecase.ProxyStatus{
		Configured:    true,
		APIType:       domain.APITypeREST,
		BaseURL:       "https://legacy.example.com",
		ResourceCount: 1,
	}, status)

	require.NoError(t, uc.Clear(ctx))
	_, err = uc.Current(ctx)
	assert.ErrorIs(err, usecase.ErrConfigNotSet)
}

func TestConfigureProxyUseCase_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"not json", `{`, "Invalid configuration"},
		{"missing resources", `{"baseUrl":"https://x.test","apiType":"rest"}`, "resources"},
		{"empty resources", `{"baseUrl":"https://x.test","apiType":"rest","resources":[]}`, "/resources"},
		{"bad api type", `{"baseUrl":"https://x.test","apiType":"graphql","resources":[{"name":"a"}]}`, "/apiType"},
		{"unknown operation", `{"baseUrl":"https://x.test","apiType":"rest","resources":[{"name":"a","operations":{"search":{}}}]}`, "/resources/0/operations"},
		{"relative base url", `{"baseUrl":"legacy.local","apiType":"rest","resources":[{"name":"a"}]}`, "absolute http(s) URL"},
		{"bearer without token", `{"baseUrl":"https://x.test","apiType":"rest","auth":{"mode":"bearer"},"resources":[{"name":"a"}]}`, "bearerToken"},
		{"soap without operation name", `{"baseUrl":"https://x.test","apiType":"soap","resources":[{"name":"a","operations":{"list":{}}}]}`, "soap.operationName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockConfigStore)
			uc, err := usecase.NewConfigureProxyUseCase(store, discardLogger())
			require.NoError(t, err)

			_, err = uc.Configure(context.Background(), []byte(tt.doc))

			require.Error(t, err)
			assert.ErrorIs(t, err, usecase.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
			store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
		})
	}
}

func TestConfigureProxyUseCase_ApplyRejectsNonBijectiveMappings(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(discardLogger())
	uc, err := usecase.NewConfigureProxyUseCase(store, discardLogger())
	require.NoError(t, err)

	err = uc.Apply(ctx, &domain.ProxyConfig{
		BaseURL: "https://legacy.example.com",
		APIType: domain.APITypeREST,
		Resources: []domain.ResourceConfig{{
			Name:     "customers",
			Endpoint: "/customers",
			FieldMappings: []domain.FieldMapping{
				{NormalizedName: "id", LegacyName: "CUST_ID"},
				{NormalizedName: "id", LegacyName: "CUST_NO"},
			},
		}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
	assert.Contains(t, err.Error(), `duplicate normalizedName "id"`)
	stored, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestConfigureProxyUseCase_StoreFailure(t *testing.T) {
	store := new(MockConfigStore)
	store.On("Set", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	store.On("Get", mock.Anything).Return(nil, errors.New("disk gone"))
	uc, err := usecase.NewConfigureProxyUseCase(store, discardLogger())
	require.NoError(t, err)

	_, err = uc.Configure(context.Background(), []byte(validConfigJSON))
	require.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrInvalidInput)
	assert.Contains(t, err.Error(), "disk full")

	_, err = uc.Status(context.Background())
	assert.Error(t, err)
	store.AssertExpectations(t)
}
