package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FilesystemOutput writes every instrumented HTTP message into its own file.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput prepares `dir` for a new run. Only the dumps of a
// previous run are removed, other files in dir are left alone.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	for _, e := range entries {
		if e.IsDir() || !isDump(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return FilesystemOutput{}, err
		}
	}
	return FilesystemOutput{directory: dir}, nil
}

// isDump matches the "<message id>.txt" names written by Write.
func isDump(name string) bool {
	id, ok := strings.CutSuffix(name, ".txt")
	if !ok || id == "" {
		return false
	}
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, fmt.Sprintf("%s.txt", id)), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
