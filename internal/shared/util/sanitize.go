package util

import (
	"errors"
	"strings"
)

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_")

// SanitizeFileName makes an uploaded file name safe to embed in a storage
// key: path separators are replaced and traversal patterns rejected outright.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := fileNameReplacer.Replace(strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
