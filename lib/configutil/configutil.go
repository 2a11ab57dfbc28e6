package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Reads a json5 configuration file. `name` should carry its file extension.
// If a sibling `<name>.local.<ext>` exists, it is merged on top of the
// default file, overriding any keys it sets.
func ReadConfig[T any](name string) (T, error) {
	var out T

	dir := filepath.Dir(name)
	base := filepath.Base(name)
	prefix, ext, _ := strings.Cut(base, ".")

	found := false

	contents, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(contents) > 0 {
		err = json5.Unmarshal(contents, &out)
		if err != nil {
			return out, err
		}
		found = true
	}

	localPath := filepath.Join(dir, fmt.Sprintf("%s.local.%s", prefix, ext))
	localContents, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localContents) > 0 {
		var overlay T
		err = json5.Unmarshal(localContents, &overlay)
		if err != nil {
			return out, err
		}
		err = mergo.Merge(&out, overlay, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadConfig but it walks up parent directories until the filesystem root
// looking for a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			parent := filepath.Dir(current)
			if parent == current {
				return zero, os.ErrNotExist
			}
			current = parent
			continue
		}
		if err != nil {
			return zero, err
		}
		return config, nil
	}
}
