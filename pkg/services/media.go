package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"postdesk/pkg/config"
)

const defaultMediaFolder = "static/images"

type MediaFile struct {
	Name string `json:"name"`
	Path string `json:"path"` // URL path to use in markdown
	Size int64  `json:"size"`
}

// GetMediaConfig resolves the repo-relative media folder and its public URL
// prefix. The collection config wins over MEDIA_DIR.
func GetMediaConfig() (string, string) {
	mediaFolder, publicFolder := config.MediaDir, ""
	if cfg, err := GetCMSConfig(); err == nil {
		if cfg.MediaFolder != "" {
			mediaFolder = cfg.MediaFolder
			publicFolder = cfg.PublicFolder
		}
	}
	return firstNonEmpty(mediaFolder, defaultMediaFolder), publicFolder
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// mediaURL maps a file in the media folder to the URL Hugo serves it at.
func mediaURL(mediaFolder, publicFolder, name string) string {
	var usagePath string
	if publicFolder != "" {
		usagePath = path.Join(publicFolder, name)
	} else {
		cleaned := strings.Trim(filepath.ToSlash(mediaFolder), "/")
		staticPrefix := strings.Trim(filepath.ToSlash(config.StaticDir), "/") + "/"
		usagePath = path.Join(strings.TrimPrefix(cleaned, staticPrefix), name)
	}
	if !strings.HasPrefix(usagePath, "/") && !strings.HasPrefix(usagePath, "http") {
		usagePath = "/" + usagePath
	}
	return usagePath
}

func ListMediaFiles() ([]MediaFile, error) {
	mediaFolder, publicFolder := GetMediaConfig()
	entries, err := os.ReadDir(filepath.Join(config.RepoPath, mediaFolder))
	if errors.Is(err, os.ErrNotExist) {
		return []MediaFile{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]MediaFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, MediaFile{
			Name: entry.Name(),
			Path: mediaURL(mediaFolder, publicFolder, entry.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// SaveMediaFile stores src under a unique name derived from filename.
func SaveMediaFile(filename string, src io.Reader) (*MediaFile, error) {
	mediaFolder, publicFolder := GetMediaConfig()

	filename = strings.ReplaceAll(filepath.Base(filename), " ", "_")
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	if name == "" || name == "." {
		return nil, fmt.Errorf("%w: empty file name", ErrInvalidPath)
	}
	filename = fmt.Sprintf("%s_%d%s", name, time.Now().Unix(), ext)

	fullMediaPath := SafeJoin(config.RepoPath, mediaFolder, filename)
	if fullMediaPath == "" {
		return nil, fmt.Errorf("%w: media path", ErrInvalidPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullMediaPath), 0755); err != nil {
		return nil, err
	}

	dst, err := os.Create(fullMediaPath)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return nil, err
	}

	return &MediaFile{
		Name: filename,
		Path: mediaURL(mediaFolder, publicFolder, filename),
		Size: size,
	}, nil
}

func DeleteMediaFile(filename string) error {
	fullMediaPath, err := MediaFilePath(filename)
	if err != nil {
		return err
	}
	return os.Remove(fullMediaPath)
}

// MediaFilePath resolves a media file name to its path on disk.
func MediaFilePath(filename string) (string, error) {
	mediaFolder, _ := GetMediaConfig()
	fullMediaPath := SafeJoin(config.RepoPath, mediaFolder, filepath.Base(filename))
	if fullMediaPath == "" {
		return "", fmt.Errorf("%w: media path", ErrInvalidPath)
	}
	return fullMediaPath, nil
}

// AssetExists reports whether a site-absolute URL path is served from the
// static root.
func AssetExists(urlPath string) bool {
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	full := SafeJoin(config.RepoPath, config.StaticDir, rel)
	if full == "" {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}
