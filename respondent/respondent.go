// Package respondent derives the device-scoped pseudo-identifier used to
// deduplicate survey responses. The id is advisory only: it is a random
// token persisted in local storage, not an authentication credential, and
// anyone clearing that storage gets a fresh one.
package respondent

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/mlopez/surveyforge/log"
)

const (
	appDir      = "surveyforge"
	storageFile = "survey_respondent_id"
	idPrefix    = "respondent_"
)

type Provider struct {
	// Dir overrides the storage directory; empty means the user config dir.
	Dir string
}

// GetOrCreate returns the stored respondent id, creating and persisting one
// on first use. When storage is unavailable it degrades to a fresh,
// non-persisted id per call, so dedup is best effort only.
func (p Provider) GetOrCreate() string {
	path, err := p.storagePath()
	if err != nil {
		log.Debugf("respondent.storage_path: %s", err)
		return newId()
	}

	stored, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(stored)); strings.HasPrefix(id, idPrefix) {
			return id
		}
	}

	id := newId()
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err == nil {
		err = os.WriteFile(path, []byte(id), 0o600)
	}
	if err != nil {
		log.Debugf("respondent.persist: %s", err)
	}
	return id
}

func (p Provider) storagePath() (string, error) {
	dir := p.Dir
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, appDir)
	}
	return filepath.Join(dir, storageFile), nil
}

func newId() string {
	token := strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
	return idPrefix + token
}
