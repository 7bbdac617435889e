package services

import (
	"context"
	"testing"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemCreate_WithSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item, err := env.items.Create(ctx, owner, testOrigin, CreateItemInput{
		Title:  "core router",
		Type:   models.ItemTypeNetworkDevice,
		Secret: strPtr("hunter2"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, owner.ID, item.OwnerID)
	assert.True(t, item.HasSecret())

	// only ciphertext is stored, and it round-trips through the engine
	assert.NotContains(t, item.Ciphertext, "hunter2")
	plaintext, err := env.engine.Decrypt(item.Ciphertext, item.IV)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)

	// create is audited without secret content
	assert.Equal(t, 1, env.repos.auditRepo.actionCount(models.AuditActionCreate))
	entry := env.repos.auditRepo.entries[0]
	assert.Equal(t, owner.Name, entry.ActorName)
	assert.Equal(t, true, entry.Details["has_secret"])
}

func TestItemCreate_MetadataOnly(t *testing.T) {
	env := newTestEnv(t)

	item, err := env.items.Create(context.Background(), owner, testOrigin, CreateItemInput{
		Title: "license portal",
		Type:  models.ItemTypeWebsite,
	})
	require.NoError(t, err)
	assert.False(t, item.HasSecret())
}

func TestItemCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.items.Create(ctx, owner, testOrigin, CreateItemInput{Type: models.ItemTypeServer})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = env.items.Create(ctx, owner, testOrigin, CreateItemInput{Title: "x", Type: "mainframe"})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestItemUpdate_MetadataIndependentOfSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := createItemWithSecret(t, env, "before")
	oldCiphertext, oldIV := item.Ciphertext, item.IV

	updated, err := env.items.Update(ctx, owner, testOrigin, item.ID, UpdateItemInput{
		Title: strPtr("renamed"),
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, oldCiphertext, updated.Ciphertext, "metadata patch must not touch the secret")
	assert.Equal(t, oldIV, updated.IV)
}

func TestItemUpdate_SecretRotationReplacesBoth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := createItemWithSecret(t, env, "before")
	oldCiphertext, oldIV := item.Ciphertext, item.IV

	updated, err := env.items.Update(ctx, owner, testOrigin, item.ID, UpdateItemInput{
		Secret: strPtr("after"),
	})
	require.NoError(t, err)

	assert.NotEqual(t, oldCiphertext, updated.Ciphertext)
	assert.NotEqual(t, oldIV, updated.IV)

	plaintext, err := env.engine.Decrypt(updated.Ciphertext, updated.IV)
	require.NoError(t, err)
	assert.Equal(t, "after", plaintext)
}

func TestItemUpdate_OnlyOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := createItemWithSecret(t, env, "s")

	// even a view_secret grantee cannot mutate
	require.NoError(t, env.share.Share(ctx, owner, testOrigin, item.ID, grantee.ID, models.PermissionViewSecret))
	_, err := env.items.Update(ctx, grantee, testOrigin, item.ID, UpdateItemInput{Title: strPtr("nope")})
	assert.ErrorIs(t, err, common.ErrorPermissionDenied)

	// admin can
	_, err = env.items.Update(ctx, admin, testOrigin, item.ID, UpdateItemInput{Title: strPtr("ok")})
	assert.NoError(t, err)
}

func TestItemDelete_KeepsAuditHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := createItemWithSecret(t, env, "s")
	require.NoError(t, env.items.Delete(ctx, owner, testOrigin, item.ID))

	_, err := env.repos.itemsRepo.GetByID(ctx, item.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// create + delete entries survive the item
	entries, err := env.auditSvc.ListForItem(ctx, admin, item.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestItemGet_RequiresMetadataAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := createItemWithSecret(t, env, "s")

	_, err := env.items.Get(ctx, grantee, item.ID)
	assert.ErrorIs(t, err, common.ErrorPermissionDenied)

	require.NoError(t, env.share.Share(ctx, owner, testOrigin, item.ID, grantee.ID, models.PermissionViewMetadata))
	got, err := env.items.Get(ctx, grantee, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
}
