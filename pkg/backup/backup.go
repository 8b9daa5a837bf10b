// Package backup defines interfaces for account-store snapshots.
package backup

import (
	"context"
	"io"
)

// BackupManager exports and restores the complete account state of a node.
type BackupManager interface {
	// BackupData writes a snapshot of every stored account.
	BackupData(ctx context.Context, writer io.Writer) error

	// RestoreData replaces the stored accounts with a snapshot.
	RestoreData(ctx context.Context, reader io.Reader) error

	// GetBackupStatus returns the current backup status.
	GetBackupStatus(ctx context.Context) (BackupStatus, error)
}

// BackupStatus represents the status of backup operations.
type BackupStatus struct {
	// LastBackup is the Unix timestamp of the last successful backup.
	LastBackup int64

	// LastBackupSize is the compressed size of the last backup in bytes.
	LastBackupSize int64

	// LastBackupAccounts is the number of accounts in the last backup.
	LastBackupAccounts int

	// LastRestore is the Unix timestamp of the last successful restore.
	LastRestore int64

	// BackupInProgress indicates if a backup or restore is currently running.
	BackupInProgress bool
}
