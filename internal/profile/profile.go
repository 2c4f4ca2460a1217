// Package profile loads named scoring profiles. A profile bundles the
// categorization thresholds, the recommendation bands and the ranking
// weights. Profiles are written in CUE and unified with an embedded schema
// that supplies every default, so a profile only states what it changes.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/reactivation/internal/ranking"
	"github.com/matthewbaird/reactivation/internal/reactivation"
	"github.com/matthewbaird/reactivation/internal/types"
)

// DefaultName is the profile that always exists.
const DefaultName = "default"

// ErrUnknownProfile is returned by Get for names not in the set.
var ErrUnknownProfile = errors.New("profile: unknown profile")

//go:embed schema.cue
var schemaSrc string

// Profile is one named scoring configuration.
type Profile struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Thresholds  types.Thresholds   `json:"thresholds"`
	Bands       reactivation.Bands `json:"bands"`
	Weights     ranking.Weights    `json:"weights"`
}

// AnalyzerConfig returns the analyzer configuration for this profile.
func (p Profile) AnalyzerConfig() reactivation.Config {
	cfg := reactivation.DefaultConfig()
	cfg.Thresholds = p.Thresholds
	cfg.Bands = p.Bands
	cfg.Features.Thresholds = p.Thresholds
	return cfg
}

// Set is an immutable collection of profiles.
type Set struct {
	profiles map[string]Profile
}

// Default returns a set holding only the built-in default profile.
func Default() *Set {
	s, err := Parse(nil, "")
	if err != nil {
		panic("profile: embedded schema is invalid: " + err.Error())
	}
	return s
}

// Load reads and parses a CUE profiles file.
func Load(path string) (*Set, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse unifies src with the schema and decodes every profile under the
// top-level "profiles" field. An empty src yields the default set.
func Parse(src []byte, filename string) (*Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling profile schema: %w", err)
	}
	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, fmt.Errorf("compiling profiles: %w", err)
		}
		v = v.Unify(user)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating profiles: %w", err)
	}

	iter, err := v.LookupPath(cue.ParsePath("profiles")).Fields()
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	set := &Set{profiles: make(map[string]Profile)}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		var p Profile
		if err := iter.Value().Decode(&p); err != nil {
			return nil, fmt.Errorf("decoding profile %q: %w", name, err)
		}
		p.Name = name
		if err := p.AnalyzerConfig().Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		if err := p.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		set.profiles[name] = p
	}
	return set, nil
}

// Get returns the named profile; an empty name selects the default.
func (s *Set) Get(name string) (Profile, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
