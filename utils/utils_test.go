package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTmpSibling(t *testing.T) {
	path := filepath.Join("out", "map.png")
	a := GetTmpSibling(path)
	b := GetTmpSibling(path)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "out", filepath.Dir(a))
	base := filepath.Base(a)
	assert.True(t, strings.HasPrefix(base, ".map.png."), base)
	assert.True(t, strings.HasSuffix(base, ".tmp"), base)
}

func TestGetLowerExt(t *testing.T) {
	assert.Equal(t, ".shp", GetLowerExt("a/B.SHP"))
	assert.Equal(t, "", GetLowerExt("noext"))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir))
}

func TestFieldNameCandidates(t *testing.T) {
	assert.Equal(t, []string{"class"}, FieldNameCandidates("class"))

	names := FieldNameCandidates("分类")
	require.Len(t, names, 2)
	assert.Equal(t, "分类", names[0])
	assert.Equal(t, "\xb7\xd6\xc0\xe0", names[1])
}
