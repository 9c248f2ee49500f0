// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package batch walks a directory tree of 00meta.json-described evidence
// batches, builds the EvidenceSource hierarchy they declare, and hands
// each data file to a caller-supplied FileProcessor (§6.1,
// batch_import.py's BatchImporter).
package batch

import (
	"strings"

	"toolsaf.dev/toolsaf/internal/errors"
)

// LabelFilter decides which batch labels get processed, from a
// comma-separated spec where a leading "^" excludes a label
// (batch_import.py's LabelFilter, the --def-loads CLI filter).
type LabelFilter struct {
	explicitInclude bool
	included        map[string]bool
	excluded        map[string]bool
}

// NewLabelFilter parses spec. An empty spec includes everything. A spec
// whose first entry is an exclusion ("^foo") defaults to "include
// everything except what's excluded"; otherwise only explicitly included
// labels pass.
func NewLabelFilter(spec string) (*LabelFilter, error) {
	f := &LabelFilter{explicitInclude: true, included: map[string]bool{}, excluded: map[string]bool{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		f.explicitInclude = false
		return f, nil
	}
	for i, d := range strings.Split(spec, ",") {
		remove := strings.HasPrefix(d, "^")
		if remove {
			if i == 0 {
				f.explicitInclude = false
			}
			f.excluded[d[1:]] = true
		} else {
			f.included[d] = true
		}
	}
	for label := range f.included {
		if f.excluded[label] {
			return nil, errors.Errorf(errors.KindConfiguration, "label %q is both included and excluded", label)
		}
	}
	return f, nil
}

// Filter reports whether label should be processed.
func (f *LabelFilter) Filter(label string) bool {
	if f.explicitInclude {
		return f.included[label]
	}
	return !f.excluded[label]
}
