// Package importer decodes bank CSV exports into raw transactions.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Size   int64
	Source string // source account code from the file name
}

// SourceFromFileName returns the source account code of a bank file: the part of the
// base name before the first '-', or the whole stem when there is none.
// "CHK-2025-01.csv" belongs to source "CHK".
func SourceFromFileName(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if i := strings.Index(stem, "-"); i >= 0 {
		return stem[:i]
	}
	return stem
}

// Scan returns the CSV files directly inside dir, sorted by name.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Size:   info.Size(),
			Source: SourceFromFileName(e.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// MarkProcessed moves a file from the import dir to the processed dir.
func MarkProcessed(importDir, processedDir, fileName string) error {
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(importDir, fileName)
	dst := filepath.Join(processedDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// DecodeFile opens a bank file and decodes it with l.
func DecodeFile(f FileInfo, l Layout) (Decoded, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return Decoded{}, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer fh.Close()
	return Decode(fh, l, f.Source, f.Name)
}
