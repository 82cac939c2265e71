package lake

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/lakecheck/pkg/models"
)

// Discover lists the hour partitions under root in lexical traversal order.
// Date directories are matched at any depth below root and hour directories
// at any depth below their date directory.
func Discover(root string, layout models.Layout) ([]models.Partition, error) {
	layout = layout.WithDefaults()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("lake root '%s': %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("lake root '%s' is not a directory", root)
	}

	dateDirs, err := findDirs(root, layout.DatePrefix)
	if err != nil {
		return nil, err
	}

	var partitions []models.Partition
	for _, dateDir := range dateDirs {
		hourDirs, err := findDirs(dateDir, layout.HourPrefix)
		if err != nil {
			return nil, err
		}
		date := strings.TrimPrefix(filepath.Base(dateDir), layout.DatePrefix)
		for _, hourDir := range hourDirs {
			hour := strings.TrimPrefix(filepath.Base(hourDir), layout.HourPrefix)
			partitions = append(partitions, NewPartition(hourDir, date, hour, layout))
		}
	}
	return partitions, nil
}

// NewPartition describes the partition stored in dir, probing which of its
// dataset files exist.
func NewPartition(dir, date, hour string, layout models.Layout) models.Partition {
	layout = layout.WithDefaults()
	p := models.Partition{
		Date:             date,
		Hour:             hour,
		Dir:              dir,
		CustomersPath:    filepath.Join(dir, layout.CustomersFile),
		ProductsPath:     filepath.Join(dir, layout.ProductsFile),
		TransactionsPath: filepath.Join(dir, layout.TransactionsFile),
	}
	p.HasCustomers = fileExists(p.CustomersPath)
	p.HasProducts = fileExists(p.ProductsPath)
	p.HasTransactions = fileExists(p.TransactionsPath)
	return p
}

// findDirs walks base and returns directories whose name starts with prefix.
// Matches nested inside another match are included; WalkDir visits entries in
// lexical order so the result is deterministic.
func findDirs(base, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != base && strings.HasPrefix(d.Name(), prefix) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking '%s': %w", base, err)
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
