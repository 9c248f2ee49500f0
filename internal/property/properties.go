// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package property

import "fmt"

// Well-known property keys shared across the model, matcher, inspector,
// and ignore-rules packages.
var (
	// Expected carries the entity's derived Expected/Unexpected/External
	// verdict as a VerdictValue (§4.3's "check:expected").
	Expected = NewModelKey("check:expected")

	// Encryption marks whether an observed connection used transport
	// encryption as modeled (§4.6 example key).
	Encryption = NewModelKey("check:encryption")
)

// ExpectedValue builds the VerdictValue stored under Expected.
func ExpectedValue(v Verdict) VerdictValue { return VerdictValue{Verdict: v} }

// Component returns the model-declared key naming a NodeComponent, e.g.
// "component:os".
func Component(name string) Key { return NewModelKey(fmt.Sprintf("component:%s", name)) }

// Permission returns the (non-model) key naming an observed permission
// request, e.g. "permission:camera".
func Permission(name string) Key { return New(fmt.Sprintf("permission:%s", name)) }
