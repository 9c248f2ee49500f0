// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package event

import (
	"fmt"

	"toolsaf.dev/toolsaf/internal/address"
	"toolsaf.dev/toolsaf/internal/property"
)

// PropertyEvent updates a property directly on a known entity (§4.1,
// §4.3). The two asymmetric refusal orders the inspector applies to
// PropertyEvent vs. PropertyAddressEvent are implemented in
// internal/inspector, not here.
type PropertyEvent struct {
	base
	Entity Entity
	Key    property.Key
	Value  property.Value
}

func NewPropertyEvent(evidence Evidence, entity Entity, key property.Key, value property.Value) *PropertyEvent {
	return &PropertyEvent{base: base{Evidence: evidence}, Entity: entity, Key: key, Value: value}
}

func (p *PropertyEvent) GetVerdict() property.Verdict {
	if v, ok := p.Value.(property.Verdictable); ok {
		return v.GetVerdict()
	}
	return property.Incon
}

func (p *PropertyEvent) ValueString() string {
	return fmt.Sprintf("%s: %s", p.Key, p.Value.Explanation())
}

// PropertyAddressEvent updates a property on whatever entity addr
// resolves to, letting an adapter describe traffic by address alone
// without having built the model-graph node yet (§4.1, §4.3).
type PropertyAddressEvent struct {
	base
	Address address.Address
	Key     property.Key
	Value   property.Value
}

func NewPropertyAddressEvent(evidence Evidence, addr address.Address, key property.Key, value property.Value) *PropertyAddressEvent {
	return &PropertyAddressEvent{base: base{Evidence: evidence}, Address: addr, Key: key, Value: value}
}

func (p *PropertyAddressEvent) GetVerdict() property.Verdict {
	if v, ok := p.Value.(property.Verdictable); ok {
		return v.GetVerdict()
	}
	return property.Incon
}

func (p *PropertyAddressEvent) ValueString() string {
	return fmt.Sprintf("%s: %s", p.Key, p.Value.Explanation())
}
