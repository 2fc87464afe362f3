package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postdesk/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaLifecycle(t *testing.T) {
	setupRepo(t)

	saved, err := SaveMediaFile("my diagram.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.Name, "my_diagram_"))
	assert.Equal(t, "/images/"+saved.Name, saved.Path)
	assert.Equal(t, int64(len("png-bytes")), saved.Size)
	assert.True(t, AssetExists(saved.Path))

	files, err := ListMediaFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, saved.Name, files[0].Name)

	require.NoError(t, DeleteMediaFile(saved.Name))
	assert.False(t, AssetExists(saved.Path))
	assert.True(t, os.IsNotExist(DeleteMediaFile(saved.Name)))
}

func TestMediaConfigFromCollectionConfig(t *testing.T) {
	setupRepo(t)
	writeFile(t, "static/admin/config.yml", "media_folder: static/uploads\npublic_folder: /uploads\n")

	folder, public := GetMediaConfig()
	assert.Equal(t, "static/uploads", folder)
	assert.Equal(t, "/uploads", public)

	files, err := ListMediaFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestAssetExists(t *testing.T) {
	setupRepo(t)
	writeFile(t, "static/css/site.css", "body{}")
	require.NoError(t, os.MkdirAll(filepath.Join(config.StaticRoot(), "dir"), 0755))

	assert.True(t, AssetExists("/css/site.css"))
	assert.False(t, AssetExists("/css/missing.css"))
	assert.False(t, AssetExists("/dir"))
	assert.False(t, AssetExists("/../../etc/passwd"))
}
