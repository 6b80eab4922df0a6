// Package validation checks user-supplied paths before a run touches the network.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsValidReportFormat checks if the given format is supported for run reports.
func IsValidReportFormat(format string) error {
	switch strings.ToLower(format) {
	case "csv", "json":
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s. Supported formats are 'csv', 'json'", format)
	}
}

// IsValidReportPath checks that path names a .csv or .json file that is not a directory.
func IsValidReportPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("report path is empty")
	}
	if err := IsValidReportFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return fmt.Errorf("report path %s is a directory", path)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}
	return nil
}

// IsValidFilePermissions checks that mode grants nothing to group or others,
// as required for credential files.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode.Perm()&0077 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600", mode.Perm().String())
	}
	return nil
}

// IsPrivateFile stats path and applies IsValidFilePermissions.
func IsPrivateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return IsValidFilePermissions(info.Mode())
}
