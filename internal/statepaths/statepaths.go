package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultStateDir = "~/.greg"
	HandledFilename = "handled_messages.json"
)

func FileStateDir() string {
	dir := strings.TrimSpace(viper.GetString("file_state_dir"))
	if dir == "" {
		dir = DefaultStateDir
	}
	return ExpandHomePath(dir)
}

// HandledPath is handled.path when set, else the default file under the
// state dir.
func HandledPath() string {
	if p := strings.TrimSpace(viper.GetString("handled.path")); p != "" {
		return ExpandHomePath(p)
	}
	return filepath.Join(FileStateDir(), HandledFilename)
}

func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}
