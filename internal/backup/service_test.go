package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/workforce-api/internal/models"
)

type memoryStore struct {
	objects map[string]Object
	data    map[string]string
	listErr error
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]Object{}, data: map[string]string{}}
}

func (m *memoryStore) put(name string, created time.Time) {
	m.objects[name] = Object{Name: name, Created: created}
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Object
	for name, obj := range m.objects {
		if strings.HasPrefix(name, prefix) {
			out = append(out, obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) Write(_ context.Context, key, _ string, fill func(io.Writer) error) error {
	var buf strings.Builder
	if err := fill(&buf); err != nil {
		return err
	}
	m.data[key] = buf.String()
	m.objects[key] = Object{Name: key, Created: time.Now()}
	return nil
}

func (m *memoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			delete(m.objects, name)
			delete(m.data, name)
			n++
		}
	}
	m.deleted = append(m.deleted, prefix)
	return n, nil
}

func (m *memoryStore) URI(key string) string { return "mem://" + key }

type fakeExporter struct {
	failOn string
}

func (f fakeExporter) Export(_ context.Context, table string, w io.Writer) (int64, error) {
	if table == f.failOn {
		return 0, errors.New("boom")
	}
	_, err := fmt.Fprintf(w, "{\"table\":%q}\n", table)
	return 1, err
}

var backupNow = time.Date(2025, 3, 9, 17, 30, 0, 0, time.UTC)

func newTestService(store ObjectStore, exp Exporter) Service {
	sgt := time.FixedZone("SGT", 8*60*60)
	cfg := Config{
		Prefix:   "backups/",
		Tables:   []string{"users", "payments"},
		Location: sgt,
	}
	return NewService(store, exp, cfg, zerolog.Nop(), WithClock(func() time.Time { return backupNow }))
}

func TestCreateAutoBackupWritesTablesAndManifest(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, fakeExporter{})

	res, err := svc.CreateAutoBackup(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	// 17:30 UTC is already the next day in Singapore.
	assert.Equal(t, "mem://backups/auto_backup_2025-03-10/", res.BackupPath)

	assert.Equal(t, "{\"table\":\"users\"}\n", store.data["backups/auto_backup_2025-03-10/users.ndjson"])
	assert.Contains(t, store.data, "backups/auto_backup_2025-03-10/payments.ndjson")
	assert.Contains(t, store.data["backups/auto_backup_2025-03-10/manifest.json"], `"payments": 1`)
}

func TestCreateAutoBackupExportFailure(t *testing.T) {
	svc := newTestService(newMemoryStore(), fakeExporter{failOn: "payments"})

	res, err := svc.CreateAutoBackup(context.Background())
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "payments")
}

func TestCheckManualQuota(t *testing.T) {
	day := 24 * time.Hour
	cases := []struct {
		name      string
		folders   map[string]time.Duration
		canCreate bool
		evict     string
	}{
		{"empty", nil, true, ""},
		{"one auto", map[string]time.Duration{"auto_backup_2025-03-09": day}, true, ""},
		{
			"two autos deny",
			map[string]time.Duration{"auto_backup_2025-03-02": 7*day - time.Hour, "auto_backup_2025-03-09": day},
			false, "",
		},
		{
			"auto and manual evict manual",
			map[string]time.Duration{"auto_backup_2025-03-09": day, "manual_backup_2025-03-05": 4 * day},
			true, "manual_backup_2025-03-05",
		},
		{
			"old folders ignored",
			map[string]time.Duration{"auto_backup_2025-02-20": 17 * day, "auto_backup_2025-03-09": day},
			true, "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStore()
			for folder, age := range tc.folders {
				store.put("backups/"+folder+"/users.ndjson", backupNow.Add(-age))
			}
			quota := newTestService(store, fakeExporter{}).CheckManualQuota(context.Background())
			assert.Equal(t, tc.canCreate, quota.CanCreate)
			assert.Equal(t, tc.evict, quota.EvictManual)
		})
	}
}

func TestCheckManualQuotaCountsFoldersOnce(t *testing.T) {
	store := newMemoryStore()
	store.put("backups/auto_backup_2025-03-09/users.ndjson", backupNow.Add(-time.Hour))
	store.put("backups/auto_backup_2025-03-09/payments.ndjson", backupNow.Add(-time.Hour))
	store.put("backups/auto_backup_2025-03-09/manifest.json", backupNow.Add(-time.Hour))

	quota := newTestService(store, fakeExporter{}).CheckManualQuota(context.Background())
	assert.True(t, quota.CanCreate)
	assert.Equal(t, 1, quota.AutoCount)
	require.Len(t, quota.RecentBackups, 1)
	assert.Equal(t, models.BackupAuto, quota.RecentBackups[0].Type)
}

func TestCheckManualQuotaListFailureDenies(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("permission denied")

	quota := newTestService(store, fakeExporter{}).CheckManualQuota(context.Background())
	assert.False(t, quota.CanCreate)
	assert.True(t, quota.StorageUnavailable)
}

func TestCreateManualBackupWithoutStorage(t *testing.T) {
	res := newTestService(UnconfiguredStore{}, fakeExporter{}).CreateManualBackup(context.Background())
	assert.False(t, res.Success)
	assert.True(t, res.StorageUnavailable)
	assert.False(t, res.QuotaExceeded)
	assert.Equal(t, "Cannot create manual backup: backup storage is not configured.", res.Message)

	store := newMemoryStore()
	store.listErr = errors.New("permission denied")
	res = newTestService(store, fakeExporter{}).CreateManualBackup(context.Background())
	assert.True(t, res.StorageUnavailable)
	assert.Contains(t, res.Message, "permission denied")
	assert.Empty(t, store.objects)
}

func TestCreateManualBackupEvictsPreviousManual(t *testing.T) {
	store := newMemoryStore()
	store.put("backups/auto_backup_2025-03-09/users.ndjson", backupNow.Add(-2*time.Hour))
	store.put("backups/manual_backup_2025-03-06/users.ndjson", backupNow.Add(-72*time.Hour))
	store.put("backups/manual_backup_2025-03-06/payments.ndjson", backupNow.Add(-72*time.Hour))

	res := newTestService(store, fakeExporter{}).CreateManualBackup(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "mem://backups/manual_backup_2025-03-10/", res.BackupPath)
	assert.Equal(t, []string{"backups/manual_backup_2025-03-06/"}, store.deleted)
	assert.NotContains(t, store.objects, "backups/manual_backup_2025-03-06/users.ndjson")
	assert.Contains(t, store.objects, "backups/auto_backup_2025-03-09/users.ndjson")
}

func TestCreateManualBackupDenied(t *testing.T) {
	store := newMemoryStore()
	store.put("backups/auto_backup_2025-03-02/users.ndjson", backupNow.Add(-6*24*time.Hour))
	store.put("backups/auto_backup_2025-03-09/users.ndjson", backupNow.Add(-time.Hour))

	res := newTestService(store, fakeExporter{}).CreateManualBackup(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already have 2 backups in the last 7 days")
	assert.True(t, res.QuotaExceeded)
	assert.False(t, res.StorageUnavailable)
	assert.Empty(t, store.deleted)
}

func TestFolderName(t *testing.T) {
	at := time.Date(2025, 1, 5, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "auto_backup_2025-01-05", FolderName(models.BackupAuto, at))
	assert.Equal(t, "manual_backup_2025-01-05", FolderName(models.BackupManual, at))
}
