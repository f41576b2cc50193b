package utils

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// UTF-8 string 转 GBK
func Utf8StrToGbk(s string) (d string, e error) {
	reader := transform.NewReader(strings.NewReader(s), simplifiedchinese.GBK.NewEncoder())
	t, e := io.ReadAll(reader)
	if e != nil {
		return
	}
	d = string(t)
	return
}

// 字段名候选：原名、GBK编码名（未编码成功或与原名相同时省略）
func FieldNameCandidates(name string) []string {
	names := []string{name}
	if gbk, e := Utf8StrToGbk(name); e == nil && gbk != name {
		names = append(names, gbk)
	}
	return names
}
