package mockserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the initial state of a mock server: accounts and the messages
// exchanged between them, oldest first.
type Seed struct {
	Users    []SeedUser    `json:"users" yaml:"users"`
	Messages []SeedMessage `json:"messages" yaml:"messages"`
}

type SeedUser struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

type SeedMessage struct {
	From    string   `json:"from" yaml:"from"`
	To      []string `json:"to" yaml:"to"`
	Subject string   `json:"subject" yaml:"subject"`
	Body    string   `json:"body" yaml:"body"`
	// Read and Archived apply to the recipients' copies.
	Read     bool `json:"read,omitempty" yaml:"read,omitempty"`
	Archived bool `json:"archived,omitempty" yaml:"archived,omitempty"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("parse YAML seed: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("parse JSON seed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &seed, nil
}

func (s *Seed) Validate() error {
	if len(s.Users) == 0 {
		return fmt.Errorf("no users defined")
	}
	known := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		if u.Email == "" {
			return fmt.Errorf("user %d: email is required", i)
		}
		known[strings.ToLower(u.Email)] = true
	}
	for i, m := range s.Messages {
		if !known[strings.ToLower(m.From)] {
			return fmt.Errorf("message %d: unknown sender %q", i, m.From)
		}
		if len(m.To) == 0 {
			return fmt.Errorf("message %d: at least one recipient is required", i)
		}
		for _, to := range m.To {
			if !known[strings.ToLower(to)] {
				return fmt.Errorf("message %d: unknown recipient %q", i, to)
			}
		}
	}
	return nil
}

// DefaultSeed is what `mailview mock` serves without a seed file.
func DefaultSeed() *Seed {
	return &Seed{
		Users: []SeedUser{
			{Email: "alice@example.com", Password: "alice"},
			{Email: "bob@example.com", Password: "bob"},
		},
		Messages: []SeedMessage{
			{From: "bob@example.com", To: []string{"alice@example.com"}, Subject: "Lunch", Body: "Noodles at noon?"},
			{From: "alice@example.com", To: []string{"bob@example.com"}, Subject: "Re: Lunch", Body: "Sure."},
			{From: "bob@example.com", To: []string{"alice@example.com"}, Subject: "Quarterly numbers", Body: "Attached below.", Read: true, Archived: true},
		},
	}
}
