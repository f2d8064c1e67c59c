package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
)

const (
	backupCodeCount = 8 // codes per batch
	backupCodeBytes = 4 // 8 uppercase hex characters
)

// BackupCodeManager issues single use recovery codes and consumes them
// against stored SHA-256 digests.
type BackupCodeManager struct {
	Count int
}

// Generate returns Count distinct plaintext codes.
func (m BackupCodeManager) Generate() ([]string, error) {
	count := m.Count
	if count <= 0 {
		count = backupCodeCount
	}

	codes := make([]string, 0, count)
	for len(codes) < count {
		code, err := cryptox.RandomHexUpper(backupCodeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		if slices.Contains(codes, code) {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// HashAll hashes each code for storage.
func (m BackupCodeManager) HashAll(codes []string) []string {
	digests := make([]string, len(codes))
	for i, code := range codes {
		digests[i] = cryptox.HashCode(normaliseBackupCode(code))
	}
	return digests
}

// Consume looks submitted up in stored. On a match it returns a new slice with
// exactly that entry removed; otherwise stored is returned unchanged.
func (m BackupCodeManager) Consume(submitted string, stored []string) (bool, []string) {
	idx := cryptox.IndexDigest(stored, cryptox.HashCode(normaliseBackupCode(submitted)))
	if idx < 0 {
		return false, stored
	}

	remaining := make([]string, 0, len(stored)-1)
	remaining = append(remaining, stored[:idx]...)
	remaining = append(remaining, stored[idx+1:]...)
	return true, remaining
}

func normaliseBackupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
