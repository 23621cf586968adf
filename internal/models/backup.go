package models

import "time"

type BackupType string

const (
	BackupAuto   BackupType = "auto"
	BackupManual BackupType = "manual"
)

// BackupFolder is one backup run found in the object store.
type BackupFolder struct {
	Name      string     `json:"name"`
	Type      BackupType `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
}

// BackupQuota is the outcome of the manual backup quota check.
type BackupQuota struct {
	CanCreate     bool           `json:"can_create"`
	AutoCount     int            `json:"auto_count"`
	ManualCount   int            `json:"manual_count"`
	EvictManual   string         `json:"evict_manual,omitempty"`
	RecentBackups []BackupFolder `json:"recent_backups"`

	// StorageUnavailable is set when the backup store could not be listed.
	StorageUnavailable bool `json:"storage_unavailable,omitempty"`
}

// BackupResult reports the outcome of a backup request.
type BackupResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	BackupPath string `json:"backup_path,omitempty"`

	// QuotaExceeded is set when the manual quota refused the request.
	QuotaExceeded bool `json:"quota_exceeded,omitempty"`
	// StorageUnavailable is set when the backup store is missing or unreachable.
	StorageUnavailable bool `json:"storage_unavailable,omitempty"`
}
