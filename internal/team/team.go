// Package team defines the teams that send and receive requests and the
// directory that enumerates them.
//
// A [Team] is compared by identity only. The [Directory] is the fixed, ordered
// set of teams a tracker knows about, with each team's contact address. The
// built-in directory lists the Karman Space Programme teams; a YAML file can
// replace it:
//
//	teams:
//	  - name: Avionics
//	    email: avionics@example.org
//	  - name: Propulsion
//	    email: propulsion@example.org
package team

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/karmanspace/tracker/internal/errors"
)

// Team identifies a team by its display name.
type Team string

// String returns the display name.
func (t Team) String() string { return string(t) }

// Built-in teams.
const (
	Avionics    Team = "Avionics"
	Propulsion  Team = "Propulsion"
	Structures  Team = "Structures"
	Systems     Team = "Systems"
	Sponsorship Team = "Sponsorship"
)

const defaultEmail = "ad2820@ic.ac.uk"

// Info describes a team in the directory.
type Info struct {
	Name  Team   `yaml:"name"`
	Email string `yaml:"email"`
}

// Directory is an ordered, enumerable set of teams.
type Directory struct {
	teams []Info
	index map[string]int // lower-cased name -> position in teams
}

// Default returns the built-in directory.
func Default() *Directory {
	d, _ := NewDirectory([]Info{
		{Name: Avionics, Email: defaultEmail},
		{Name: Propulsion, Email: defaultEmail},
		{Name: Structures, Email: defaultEmail},
		{Name: Systems, Email: defaultEmail},
		{Name: Sponsorship, Email: defaultEmail},
	})
	return d
}

// NewDirectory builds a directory from infos, preserving their order.
// Names must be non-empty and unique ignoring case.
func NewDirectory(infos []Info) (*Directory, error) {
	if len(infos) == 0 {
		return nil, errors.NewValidationError("team directory is empty").WithField("teams")
	}
	d := &Directory{
		teams: make([]Info, 0, len(infos)),
		index: make(map[string]int, len(infos)),
	}
	for _, info := range infos {
		name := strings.TrimSpace(string(info.Name))
		if name == "" {
			return nil, errors.NewValidationError("team name must not be empty").WithField("teams.name")
		}
		key := strings.ToLower(name)
		if _, dup := d.index[key]; dup {
			return nil, errors.NewValidationError("duplicate team").WithField("teams.name").WithValue(name)
		}
		info.Name = Team(name)
		d.index[key] = len(d.teams)
		d.teams = append(d.teams, info)
	}
	return d, nil
}

type fileFormat struct {
	Teams []Info `yaml:"teams"`
}

// LoadFile reads a directory from a YAML team file.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read team file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse team file %s: %w", path, err)
	}
	return NewDirectory(f.Teams)
}

// Marshal renders the directory in the team file format.
func (d *Directory) Marshal() ([]byte, error) {
	return yaml.Marshal(fileFormat{Teams: d.Teams()})
}

// Teams returns every team in directory order.
func (d *Directory) Teams() []Info {
	out := make([]Info, len(d.teams))
	copy(out, d.teams)
	return out
}

// Names returns every team name in directory order.
func (d *Directory) Names() []string {
	out := make([]string, len(d.teams))
	for i, info := range d.teams {
		out[i] = string(info.Name)
	}
	return out
}

// Lookup finds a team by name, ignoring case and surrounding whitespace.
func (d *Directory) Lookup(name string) (Info, bool) {
	i, ok := d.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Info{}, false
	}
	return d.teams[i], true
}

// Contains reports whether t is a member of the directory.
func (d *Directory) Contains(t Team) bool {
	info, ok := d.Lookup(string(t))
	return ok && info.Name == t
}

// Parse resolves a user-supplied name to its canonical Team.
func (d *Directory) Parse(name string) (Team, error) {
	info, ok := d.Lookup(name)
	if !ok {
		return "", errors.NewValidationError(
			fmt.Sprintf("unknown team (valid: %s)", strings.Join(d.Names(), ", ")),
		).WithField("team").WithValue(name)
	}
	return info.Name, nil
}

// Email returns the contact address for t, or "" when t is unknown.
func (d *Directory) Email(t Team) string {
	info, ok := d.Lookup(string(t))
	if !ok {
		return ""
	}
	return info.Email
}
