package eventlog

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ProgressFilePattern matches the progress log names written by the simulator,
// e.g. HorovodWorker_0_layer_50_port_1024_progress.txt.
var ProgressFilePattern = regexp.MustCompile(`^HorovodWorker_(\d+)_layer_(\d+)_port_(\d+)_progress\.txt$`)

// ProgressFile describes a worker progress log by its name.
type ProgressFile struct {
	Path     string
	WorkerID int
	Layers   int
	Port     int
}

// ParseProgressFileName extracts worker id, layer count and port from a progress log path.
func ParseProgressFileName(path string) (ProgressFile, error) {
	m := ProgressFilePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ProgressFile{}, fmt.Errorf("'%s' is not a worker progress log", path)
	}
	worker, _ := strconv.Atoi(m[1])
	layers, _ := strconv.Atoi(m[2])
	port, _ := strconv.Atoi(m[3])
	return ProgressFile{Path: path, WorkerID: worker, Layers: layers, Port: port}, nil
}

// FindProgressFiles lists the worker progress logs in a directory, ordered by worker id.
func FindProgressFiles(dir string) ([]ProgressFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "HorovodWorker_*_progress.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list progress logs in '%s': %w", dir, err)
	}
	var files []ProgressFile
	for _, m := range matches {
		pf, err := ParseProgressFileName(m)
		if err != nil {
			continue
		}
		files = append(files, pf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].WorkerID < files[j].WorkerID })
	return files, nil
}
