package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/cryptox"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/repositories/audit"
	"github.com/stackdeck/credvault/internal/server/repositories/items"
	"github.com/stackdeck/credvault/internal/server/repositories/permissions"
	"github.com/stackdeck/credvault/internal/server/repositories/settings"
)

// -------- in-memory repository fakes --------

type fakeItemsRepo struct {
	items map[string]*models.VaultItem
	err   error
}

func newFakeItemsRepo() *fakeItemsRepo {
	return &fakeItemsRepo{items: make(map[string]*models.VaultItem)}
}

func (f *fakeItemsRepo) Create(ctx context.Context, item *models.VaultItem) (*models.VaultItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	f.items[item.ID] = &cp
	return item, nil
}

func (f *fakeItemsRepo) GetByID(ctx context.Context, id string) (*models.VaultItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeItemsRepo) Update(ctx context.Context, item *models.VaultItem) error {
	if f.err != nil {
		return f.err
	}
	stored, ok := f.items[item.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cp := *item
	cp.RevealCount = stored.RevealCount
	cp.UpdatedAt = time.Now()
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeItemsRepo) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeItemsRepo) ListForActor(ctx context.Context, actorID string, admin bool) ([]*models.VaultItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var result []*models.VaultItem
	for _, item := range f.items {
		if admin || item.OwnerID == actorID {
			cp := *item
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeItemsRepo) RecordReveal(ctx context.Context, id string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	item, ok := f.items[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	item.RevealCount++
	now := time.Now()
	item.LastRevealAt = &now
	return item.RevealCount, nil
}

type fakePermsRepo struct {
	grants map[string]*models.VaultPermission
	err    error
}

func newFakePermsRepo() *fakePermsRepo {
	return &fakePermsRepo{grants: make(map[string]*models.VaultPermission)}
}

func permKey(itemID, granteeID string) string { return itemID + "/" + granteeID }

func (f *fakePermsRepo) Upsert(ctx context.Context, perm *models.VaultPermission) error {
	if f.err != nil {
		return f.err
	}
	cp := *perm
	cp.CreatedAt = time.Now()
	f.grants[permKey(perm.VaultItemID, perm.GranteeID)] = &cp
	return nil
}

func (f *fakePermsRepo) Get(ctx context.Context, itemID, granteeID string) (*models.VaultPermission, error) {
	if f.err != nil {
		return nil, f.err
	}
	perm, ok := f.grants[permKey(itemID, granteeID)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *perm
	return &cp, nil
}

func (f *fakePermsRepo) Delete(ctx context.Context, itemID, granteeID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := permKey(itemID, granteeID)
	_, existed := f.grants[key]
	delete(f.grants, key)
	return existed, nil
}

func (f *fakePermsRepo) ListForItem(ctx context.Context, itemID string) ([]*models.VaultPermission, error) {
	if f.err != nil {
		return nil, f.err
	}
	var result []*models.VaultPermission
	for _, perm := range f.grants {
		if perm.VaultItemID == itemID {
			cp := *perm
			result = append(result, &cp)
		}
	}
	return result, nil
}

type fakeAuditRepo struct {
	entries   []*models.VaultAuditLogEntry
	insertErr error
}

func (f *fakeAuditRepo) Insert(ctx context.Context, entry *models.VaultAuditLogEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *entry
	cp.CreatedAt = time.Now()
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeAuditRepo) ListForItem(ctx context.Context, itemID string, limit int) ([]*models.VaultAuditLogEntry, error) {
	var result []*models.VaultAuditLogEntry
	for _, e := range f.entries {
		if e.VaultItemID == itemID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeAuditRepo) ListRecent(ctx context.Context, limit int) ([]*models.VaultAuditLogEntry, error) {
	return f.entries, nil
}

// actionCount tallies entries by action.
func (f *fakeAuditRepo) actionCount(action models.AuditAction) int {
	n := 0
	for _, e := range f.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type fakeSettingsRepo struct {
	settings models.VaultSettings
	getErr   error
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*models.VaultSettings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettingsRepo) Update(ctx context.Context, s *models.VaultSettings) error {
	f.settings = *s
	f.settings.UpdatedAt = time.Now()
	return nil
}

type fakeRepoManager struct {
	itemsRepo    *fakeItemsRepo
	permsRepo    *fakePermsRepo
	auditRepo    *fakeAuditRepo
	settingsRepo *fakeSettingsRepo
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Items(db dbx.DBTX) items.Repository                  { return m.itemsRepo }
func (m *fakeRepoManager) Permissions(db dbx.DBTX) permissions.Repository      { return m.permsRepo }
func (m *fakeRepoManager) Audit(db dbx.DBTX) audit.Repository                  { return m.auditRepo }
func (m *fakeRepoManager) Settings(db dbx.DBTX) settings.Repository            { return m.settingsRepo }

// -------- test environment --------

type testEnv struct {
	repos    *fakeRepoManager
	engine   *cryptox.Engine
	items    *ItemService
	share    *ShareService
	reveal   *RevealService
	settings *SettingsService
	auditSvc *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// transactions collapse to direct calls against the fakes
	origTx := withTx
	withTx = func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(context.Context, dbx.DBTX) error) error {
		return fn(ctx, nil)
	}
	t.Cleanup(func() { withTx = origTx })

	engine, err := cryptox.NewEngine(bytes.Repeat([]byte{0x42}, cryptox.MasterKeySize))
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	repos := &fakeRepoManager{
		itemsRepo: newFakeItemsRepo(),
		permsRepo: newFakePermsRepo(),
		auditRepo: &fakeAuditRepo{},
		settingsRepo: &fakeSettingsRepo{settings: models.VaultSettings{
			RevealDurationSeconds: 30,
		}},
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	return &testEnv{
		repos:    repos,
		engine:   engine,
		items:    NewItemService(nil, repos, engine, logger),
		share:    NewShareService(nil, repos, logger),
		reveal:   NewRevealService(nil, repos, engine, logger),
		settings: NewSettingsService(nil, repos, logger),
		auditSvc: NewAuditService(nil, repos, logger),
	}
}

func strPtr(s string) *string { return &s }
