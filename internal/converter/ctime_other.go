//go:build !linux

package converter

import (
	"os"
	"time"
)

func createdAt(info os.FileInfo) time.Time {
	return info.ModTime()
}
