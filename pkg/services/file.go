package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"postdesk/pkg/config"
	"postdesk/pkg/models"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPath = errors.New("invalid path")

// SafeJoin joins target below root/sub. It returns "" when target is empty,
// absolute, or would escape root/sub.
func SafeJoin(root, sub, target string) string {
	if target == "" || filepath.IsAbs(target) {
		return ""
	}
	base := filepath.Join(root, sub)
	full := filepath.Join(base, filepath.Clean(target))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return full
}

// GetConfig returns the raw collection config for the editor.
func GetConfig() (map[string]interface{}, error) {
	content, err := os.ReadFile(filepath.Join(config.RepoPath, config.CMSConfig))
	if err != nil {
		return nil, err
	}

	var cfg map[string]interface{}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", config.CMSConfig, err)
	}
	return cfg, nil
}

// GetCMSConfig reads the typed collection config. A missing file yields an
// empty config, not an error.
func GetCMSConfig() (*models.CMSConfig, error) {
	content, err := os.ReadFile(filepath.Join(config.RepoPath, config.CMSConfig))
	if errors.Is(err, os.ErrNotExist) {
		return &models.CMSConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg models.CMSConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", config.CMSConfig, err)
	}
	return &cfg, nil
}

// PostsCollection finds the collection that owns the posts section, matched
// by name or by folder. It returns nil when none is declared.
func PostsCollection() *models.Collection {
	cfg, err := GetCMSConfig()
	if err != nil || cfg == nil {
		return nil
	}
	folder := filepath.ToSlash(filepath.Join(config.ContentDir, config.PostsSection))
	for i := range cfg.Collections {
		col := &cfg.Collections[i]
		if col.Name == config.PostsSection || strings.Trim(filepath.ToSlash(col.Folder), "/") == folder {
			return col
		}
	}
	return nil
}
