package store

import (
	"fjacquet/anapay2zaim/internal/models"
)

// MockMappingStore is an in-memory mapping table for tests.
type MockMappingStore struct {
	Mappings []models.MerchantMappingEntry

	LoadMappingsError error
}

// LoadMappings returns a copy of the mock mappings.
func (m *MockMappingStore) LoadMappings() ([]models.MerchantMappingEntry, error) {
	if m.LoadMappingsError != nil {
		return nil, m.LoadMappingsError
	}
	result := make([]models.MerchantMappingEntry, len(m.Mappings))
	copy(result, m.Mappings)
	return result, nil
}
