package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishacrest/Beta-test-sub001/internal/testdb"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
)

func TestRepositoryUpsertAndFind(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	shopID := uuid.New()

	missing, err := repo.FindByShopID(ctx, shopID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, &models.ShopNotificationSetting{ShopID: shopID, Email: "a@example.com", PayoutNotification: true}))
	require.NoError(t, repo.Upsert(ctx, &models.ShopNotificationSetting{ShopID: shopID, Email: "b@example.com", PayoutNotification: false}))

	found, err := repo.FindByShopID(ctx, shopID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "b@example.com", found.Email)
	assert.False(t, found.PayoutNotification)
}
