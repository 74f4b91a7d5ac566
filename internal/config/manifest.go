package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/korralabs/recbooth/internal/session"
)

// Manifest is the session manifest: the identity the collection server
// attributes the batch to, plus the ordered token list the operator works
// through.
type Manifest struct {
	Identity manifestIdentity `yaml:"identity"`
	Tokens   []manifestToken  `yaml:"tokens"`
}

type manifestIdentity struct {
	UserID       string `yaml:"user_id"`
	ManagerID    string `yaml:"manager_id"`
	CollectionID string `yaml:"collection_id"`
}

type manifestToken struct {
	ID        string `yaml:"id"`
	Text      string `yaml:"text"`
	Reference string `yaml:"reference"`
}

// LoadManifest reads and validates the session manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open manifest %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadManifestFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse manifest %q: %w", path, err)
	}
	return m, nil
}

// LoadManifestFromReader decodes a manifest from r. Token IDs must be
// non-empty and unique; the token list must not be empty. Unknown YAML keys
// are rejected.
func LoadManifestFromReader(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("config: decode manifest yaml: %w", err)
	}

	if len(m.Tokens) == 0 {
		return nil, fmt.Errorf("config: manifest token list must not be empty")
	}
	seen := make(map[string]int, len(m.Tokens))
	for i, tok := range m.Tokens {
		if tok.ID == "" {
			return nil, fmt.Errorf("config: manifest tokens[%d].id is required", i)
		}
		if prev, dup := seen[tok.ID]; dup {
			return nil, fmt.Errorf("config: manifest tokens[%d].id %q is a duplicate of tokens[%d]", i, tok.ID, prev)
		}
		seen[tok.ID] = i
		if tok.Text == "" {
			return nil, fmt.Errorf("config: manifest tokens[%d].text is required", i)
		}
	}
	return m, nil
}

// SessionIdentity converts the manifest identity for [session.New].
func (m *Manifest) SessionIdentity() session.Identity {
	return session.Identity{
		UserID:       m.Identity.UserID,
		ManagerID:    m.Identity.ManagerID,
		CollectionID: m.Identity.CollectionID,
	}
}

// TokenSeeds converts the manifest token list for [session.New].
func (m *Manifest) TokenSeeds() []session.TokenSeed {
	seeds := make([]session.TokenSeed, len(m.Tokens))
	for i, tok := range m.Tokens {
		seeds[i] = session.TokenSeed{
			ID:        tok.ID,
			Text:      tok.Text,
			Reference: tok.Reference,
		}
	}
	return seeds
}
