// Package store loads the merchant mapping table.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/anapay2zaim/internal/fileutils"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultMappingsFile is used when no mapping file is configured.
const DefaultMappingsFile = "merchant_mappings.yaml"

// mappingsDocument is the preferred file layout:
//
//	mappings:
//	  PAYPAY:
//	    merchant: PayPay
//	    genre_id: 10101
//	    category_id: 101
type mappingsDocument struct {
	Mappings map[string]models.MerchantMappingEntry `yaml:"mappings"`
}

// MappingStore manages loading and saving of the merchant mapping table.
type MappingStore struct {
	MappingsFile string
	logger       logging.Logger
}

// NewMappingStore creates a store for the given mapping file.
func NewMappingStore(mappingsFile string, logger logging.Logger) *MappingStore {
	if logger == nil {
		logger = logging.Nop()
	}
	return &MappingStore{
		MappingsFile: mappingsFile,
		logger:       logger,
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *MappingStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if fileutils.FileExists(filename) {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	for _, location := range locations {
		if fileutils.FileExists(location) {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".anapay2zaim", filename)
		if fileutils.FileExists(configPath) {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

func (s *MappingStore) filename() string {
	if strings.TrimSpace(s.MappingsFile) == "" {
		return DefaultMappingsFile
	}
	return s.MappingsFile
}

// LoadMappings reads the mapping table. A missing file yields an empty table.
// Entries are returned sorted by key.
func (s *MappingStore) LoadMappings() ([]models.MerchantMappingEntry, error) {
	filename := s.filename()

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Merchant mappings file not found, using defaults only",
				logging.F(logging.FieldFile, filename))
			return []models.MerchantMappingEntry{}, nil
		}
		return nil, fmt.Errorf("error resolving merchant mappings file: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading merchant mappings file: %w", err)
	}

	table, err := parseMappings(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing merchant mappings %s: %w", filePath, err)
	}

	entries := make([]models.MerchantMappingEntry, 0, len(table))
	for key, entry := range table {
		if strings.TrimSpace(key) == "" {
			continue
		}
		entry.Key = key
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	s.logger.Debug("Loaded merchant mappings",
		logging.F(logging.FieldCount, len(entries)),
		logging.F(logging.FieldFile, filePath))
	return entries, nil
}

// parseMappings accepts both the "mappings:" document and a bare top-level map.
func parseMappings(data []byte) (map[string]models.MerchantMappingEntry, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]models.MerchantMappingEntry{}, nil
	}

	var doc mappingsDocument
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Mappings) > 0 {
		return doc.Mappings, nil
	}

	var bare map[string]models.MerchantMappingEntry
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, err
	}
	delete(bare, "mappings")
	return bare, nil
}
