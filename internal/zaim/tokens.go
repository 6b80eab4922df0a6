package zaim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/fileutils"
)

// DefaultTokenFile is where the auth command stores access tokens.
const DefaultTokenFile = "zaim_tokens.json"

// Tokens are the OAuth access credentials of one Zaim user.
type Tokens struct {
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
}

// Validate reports missing token values as a ConfigurationError.
func (t Tokens) Validate() error {
	if t.AccessToken == "" || t.AccessTokenSecret == "" {
		return &apperrors.ConfigurationError{
			Setting: "zaim.token_file",
			Reason:  "access token and secret are required; run the auth command first",
		}
	}
	return nil
}

// LoadTokens reads a token file. A missing or incomplete file is a ConfigurationError.
func LoadTokens(path string) (Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tokens{}, &apperrors.ConfigurationError{
				Setting: "zaim.token_file",
				Reason:  fmt.Sprintf("%s not found; run the auth command first", path),
			}
		}
		return Tokens{}, &apperrors.ConfigurationError{Setting: "zaim.token_file", Reason: "unreadable", Err: err}
	}

	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, &apperrors.ConfigurationError{Setting: "zaim.token_file", Reason: "invalid JSON", Err: err}
	}
	if err := t.Validate(); err != nil {
		return Tokens{}, err
	}
	return t, nil
}

// SaveTokens writes tokens as indented JSON readable only by the owner.
func SaveTokens(path string, t Tokens) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling tokens: %w", err)
	}
	if err := fileutils.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("error writing tokens: %w", err)
	}
	return nil
}
