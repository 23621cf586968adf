// Package backup exports the database to object storage and enforces the manual backup quota.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
)

const autoFolderPrefix = "auto_backup"

type Config struct {
	Prefix     string
	Tables     []string
	Window     time.Duration
	MaxBackups int
	// Location names the day used in folder names.
	Location *time.Location
}

type Service interface {
	CreateAutoBackup(ctx context.Context) (models.BackupResult, error)
	// CheckManualQuota reports whether a manual backup may be taken now. A listing failure denies it
	// and marks the store unavailable.
	CheckManualQuota(ctx context.Context) models.BackupQuota
	CreateManualBackup(ctx context.Context) models.BackupResult
}

type manifest struct {
	Type      models.BackupType `json:"type"`
	CreatedAt time.Time         `json:"created_at"`
	Tables    map[string]int64  `json:"tables"`
}

type service struct {
	store    ObjectStore
	exporter Exporter
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store ObjectStore, exporter Exporter, cfg Config, logger zerolog.Logger, opts ...Option) Service {
	if cfg.Prefix == "" {
		cfg.Prefix = "backups/"
	}
	if !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 2
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &service{
		store:    store,
		exporter: exporter,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With().Str("component", "backup_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateAutoBackup(ctx context.Context) (models.BackupResult, error) {
	path, err := s.export(ctx, models.BackupAuto)
	if err != nil {
		s.logger.Error().Err(err).Msg("auto backup failed")
		return models.BackupResult{Success: false, Message: fmt.Sprintf("Auto backup failed: %v", err)}, err
	}
	return models.BackupResult{Success: true, Message: "Auto backup created successfully", BackupPath: path}, nil
}

func (s *service) CheckManualQuota(ctx context.Context) models.BackupQuota {
	quota, _ := s.checkQuota(ctx)
	return quota
}

func (s *service) checkQuota(ctx context.Context) (models.BackupQuota, error) {
	objects, err := s.store.List(ctx, s.cfg.Prefix)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list backups")
		return models.BackupQuota{CanCreate: false, RecentBackups: []models.BackupFolder{}, StorageUnavailable: true}, err
	}

	folders := recentFolders(objects, s.cfg.Prefix, s.now().Add(-s.cfg.Window))
	quota := models.BackupQuota{RecentBackups: folders}
	var newestManual *models.BackupFolder
	for i, f := range folders {
		if f.Type == models.BackupAuto {
			quota.AutoCount++
			continue
		}
		quota.ManualCount++
		if newestManual == nil || f.CreatedAt.After(newestManual.CreatedAt) {
			newestManual = &folders[i]
		}
	}

	switch {
	case len(folders) < s.cfg.MaxBackups:
		quota.CanCreate = true
	case quota.ManualCount > 0:
		quota.CanCreate = true
		quota.EvictManual = newestManual.Name
	}

	s.logger.Info().
		Int("auto", quota.AutoCount).
		Int("manual", quota.ManualCount).
		Bool("can_create", quota.CanCreate).
		Str("evict", quota.EvictManual).
		Msg("manual backup quota checked")
	return quota, nil
}

func (s *service) CreateManualBackup(ctx context.Context) models.BackupResult {
	quota, err := s.checkQuota(ctx)
	if err != nil {
		message := fmt.Sprintf("Cannot create manual backup: backup storage unavailable: %v", err)
		if errors.Is(err, ErrNotConfigured) {
			message = "Cannot create manual backup: backup storage is not configured."
		}
		return models.BackupResult{Success: false, StorageUnavailable: true, Message: message}
	}
	if !quota.CanCreate {
		return models.BackupResult{
			Success:       false,
			QuotaExceeded: true,
			Message:       fmt.Sprintf("Cannot create manual backup: already have %d backups in the last %d days.", s.cfg.MaxBackups, int(s.cfg.Window.Hours()/24)),
		}
	}

	if quota.EvictManual != "" {
		deleted, err := s.store.DeletePrefix(ctx, s.cfg.Prefix+quota.EvictManual+"/")
		if err != nil {
			s.logger.Error().Err(err).Str("folder", quota.EvictManual).Msg("failed to delete previous manual backup")
			return models.BackupResult{Success: false, Message: fmt.Sprintf("Manual backup failed: %v", err)}
		}
		s.logger.Info().Str("folder", quota.EvictManual).Int("objects", deleted).Msg("previous manual backup deleted")
	}

	path, err := s.export(ctx, models.BackupManual)
	if err != nil {
		s.logger.Error().Err(err).Msg("manual backup failed")
		return models.BackupResult{Success: false, Message: fmt.Sprintf("Manual backup failed: %v", err)}
	}
	return models.BackupResult{Success: true, Message: "Manual backup created successfully", BackupPath: path}
}

// export writes every configured table plus a manifest under a dated folder and returns its URI.
func (s *service) export(ctx context.Context, typ models.BackupType) (string, error) {
	now := s.now()
	folder := FolderName(typ, now.In(s.cfg.Location))
	base := s.cfg.Prefix + folder + "/"

	counts := make(map[string]int64, len(s.cfg.Tables))
	for _, table := range s.cfg.Tables {
		var rows int64
		err := s.store.Write(ctx, base+table+".ndjson", "application/x-ndjson", func(w io.Writer) error {
			n, err := s.exporter.Export(ctx, table, w)
			rows = n
			return err
		})
		if err != nil {
			return "", fmt.Errorf("export table %s: %w", table, err)
		}
		counts[table] = rows
	}

	m := manifest{Type: typ, CreatedAt: now.UTC(), Tables: counts}
	err := s.store.Write(ctx, base+"manifest.json", "application/json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	uri := s.store.URI(base)
	s.logger.Info().Str("type", string(typ)).Str("path", uri).Int("tables", len(counts)).Msg("backup written")
	return uri, nil
}

// FolderName returns the dated folder a backup of typ taken at t is written to.
func FolderName(typ models.BackupType, t time.Time) string {
	return fmt.Sprintf("%s_backup_%s", typ, t.Format("2006-01-02"))
}

// recentFolders groups objects by their first path segment under prefix. A folder is dated by the
// first object seen for it and dropped when older than cutoff.
func recentFolders(objects []Object, prefix string, cutoff time.Time) []models.BackupFolder {
	seen := map[string]bool{}
	folders := []models.BackupFolder{}
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Name, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(obj.Name, prefix), "/", 2)
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		name := parts[0]
		if seen[name] {
			continue
		}
		seen[name] = true
		if obj.Created.Before(cutoff) {
			continue
		}

		typ := models.BackupManual
		if strings.HasPrefix(name, autoFolderPrefix) {
			typ = models.BackupAuto
		}
		folders = append(folders, models.BackupFolder{Name: name, Type: typ, CreatedAt: obj.Created})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].CreatedAt.Before(folders[j].CreatedAt) })
	return folders
}
