package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// 同目录下的唯一临时文件路径，便于写完后原子改名
func GetTmpSibling(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
}

// 小写扩展名（含点）
func GetLowerExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
