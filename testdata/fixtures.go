// Package testdata holds recorded landmark sequences used by replay and
// end-to-end tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ayusman/formcheck/internal/replay"
)

//go:embed sequences/*.json
var sequencesFS embed.FS

// LoadSequence loads a recorded sequence by name, with or without the .json suffix.
func LoadSequence(name string) (*replay.Recording, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	data, err := sequencesFS.ReadFile(path.Join("sequences", name))
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}

	rec, err := replay.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}
	return rec, nil
}

// Sequences returns the names of all embedded sequences, sorted.
func Sequences() []string {
	entries, err := sequencesFS.ReadDir("sequences")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// Raw returns the undecoded JSON of a sequence.
func Raw(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return sequencesFS.ReadFile(path.Join("sequences", name))
}
