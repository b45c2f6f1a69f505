package integration

import (
	"context"
	"testing"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionMappingService_Upsert(t *testing.T) {
	repo := testutil.NewMemoryOptionMappingRepository()
	svc := NewOptionMappingService(repo, nil)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, OptionMappingRequest{Channel: "naver", ProductNo: "100", OptionID: "9001", SKU: "SKU-A"})
	require.NoError(t, err)
	assert.Equal(t, "naver", created.Channel)
	require.NoError(t, repo.UpdateChannelStock(ctx, created.ID, 7, created.UpdatedAt))

	updated, err := svc.Upsert(ctx, OptionMappingRequest{Channel: "naver", ProductNo: "101", OptionID: "9001", SKU: "SKU-B"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "same option is repointed, not duplicated")
	assert.Equal(t, "SKU-B", updated.SKU)
	assert.Equal(t, "101", updated.ProductNo)
	assert.Equal(t, 7, updated.ChannelStock)

	list, err := svc.List(ctx, "naver")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	ms, err := repo.FindByChannel(ctx, channel.Cafe24)
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestOptionMappingService_Upsert_Invalid(t *testing.T) {
	svc := NewOptionMappingService(testutil.NewMemoryOptionMappingRepository(), nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, OptionMappingRequest{Channel: "gmarket", ProductNo: "1", OptionID: "2", SKU: "3"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Upsert(ctx, OptionMappingRequest{Channel: "cafe24", ProductNo: "1", OptionID: "2", SKU: " "})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.List(ctx, "gmarket")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestOptionMappingService_UpsertBatch(t *testing.T) {
	svc := NewOptionMappingService(testutil.NewMemoryOptionMappingRepository(), nil)

	result := svc.UpsertBatch(context.Background(), []OptionMappingRequest{
		{Channel: "cafe24", ProductNo: "10", OptionID: "P10-A", SKU: "SKU-A"},
		{Channel: "cafe24", ProductNo: "10", OptionID: "", SKU: "SKU-B"},
		{Channel: "naver", ProductNo: "20", OptionID: "555", SKU: "SKU-A"},
	})

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, []string{"cafe24:"}, result.Failed())
}
