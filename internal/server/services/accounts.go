package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAccounts reads a list of accounts from a YAML (.yaml, .yml) or JSON
// file.
func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var accounts []Account
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &accounts)
	default:
		err = json.Unmarshal(data, &accounts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode accounts file: %w", err)
	}
	return accounts, nil
}
