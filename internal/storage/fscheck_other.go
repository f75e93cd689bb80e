//go:build !darwin && !linux

package storage

import "errors"

var errUnsupportedPlatform = errors.New("filesystem detection unsupported")

func filesystemType(string) (string, error) {
	return "", errUnsupportedPlatform
}
