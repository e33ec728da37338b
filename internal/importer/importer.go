// Package importer turns bank CSV exports into normalized transaction
// candidates. Parsers are registered by format name; detection is a cheap
// header sniff and the generic parser is the fallback when nothing matches.
package importer

import (
	"fmt"

	"github.com/dontoisme/zeroed/internal/core"
)

// FormatError reports a file-level problem: a required column is missing or
// the file cannot be read as CSV at all. Row-level problems never produce a
// FormatError; bad rows are skipped.
type FormatError struct {
	Format string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Format, e.Reason)
}

// Importer is the closed capability set every format implements.
// Detect never fails: unreadable files simply return false.
type Importer interface {
	Name() string
	Institution() string
	Description() string
	Detect(path string) bool
	// Parse returns candidates for the target account. Rows with
	// unparseable dates or amounts are dropped silently; a missing
	// required column fails the whole file with a *FormatError.
	Parse(path string, accountID int64) ([]core.Transaction, error)
}

// Registry dispatches by format name. Registration order matters for
// detection: the first importer whose Detect returns true wins.
type Registry struct {
	order     []string
	importers map[string]Importer
	fallback  string
}

// NewRegistry returns the built-in registry: the Chase dual-schema profile
// plus the column-sniffing generic fallback.
func NewRegistry() *Registry {
	r := &Registry{importers: make(map[string]Importer)}
	r.Register(NewChaseImporter())
	r.Register(NewGenericImporter())
	r.fallback = FormatGeneric
	return r
}

// Register adds a named importer. Re-registering a name replaces it without
// changing detection order.
func (r *Registry) Register(imp Importer) {
	if _, ok := r.importers[imp.Name()]; !ok {
		r.order = append(r.order, imp.Name())
	}
	r.importers[imp.Name()] = imp
}

// Get returns the importer for a format name.
func (r *Registry) Get(name string) (Importer, error) {
	imp, ok := r.importers[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q: %w", name, core.ErrNotFound)
	}
	return imp, nil
}

// DetectFormat tries every non-fallback importer's Detect in registration
// order and returns the first matching name, or "" when none match. Callers
// fall back to the generic importer in that case.
func (r *Registry) DetectFormat(path string) string {
	for _, name := range r.order {
		if name == r.fallback {
			continue
		}
		if r.importers[name].Detect(path) {
			return name
		}
	}
	return ""
}

// Fallback returns the generic importer.
func (r *Registry) Fallback() Importer {
	return r.importers[r.fallback]
}

// ImporterInfo describes one registered format for listing.
type ImporterInfo struct {
	Name        string
	Institution string
	Description string
}

// List describes every registered importer in registration order.
func (r *Registry) List() []ImporterInfo {
	infos := make([]ImporterInfo, 0, len(r.order))
	for _, name := range r.order {
		imp := r.importers[name]
		infos = append(infos, ImporterInfo{
			Name:        imp.Name(),
			Institution: imp.Institution(),
			Description: imp.Description(),
		})
	}
	return infos
}
