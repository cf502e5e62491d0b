package op

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// wireOp mirrors Op's JSON shape. UnmarshalJSON decodes a record into it and,
// separately, into a map of raw fields, so that any field this build doesn't
// know about survives a decode/re-encode round trip.
type wireOp struct {
	Type Type `json:"type"`
	UUID string `json:"uuid,omitempty"`
	Property string `json:"property,omitempty"`
	Value *string `json:"value,omitempty"`
	OldValue *string `json:"old_value,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	OldTask map[string]string `json:"old_task,omitempty"`
}

// MarshalJSON encodes the Op, then folds in any Extra fields the record was
// decoded with but this build does not model explicitly.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{
		Type: o.Type,
		Property: o.Property,
		Value: o.Value,
		OldValue: o.OldValue,
		OldTask: o.OldTask,
	}
	if o.UUID != uuid.Nil {
		w.UUID = o.UUID.String()
	}
	if !o.Timestamp.IsZero() {
		t := o.Timestamp.UTC()
		w.Timestamp = &t
	}

	base, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return base, nil
	}

	merged := map[string]any{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range o.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the Op, retaining any unrecognized top-level fields
// in Extra so a later re-encode preserves them.
func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Op{
		Type: w.Type,
		Property: w.Property,
		Value: w.Value,
		OldValue: w.OldValue,
		OldTask: w.OldTask,
	}
	if w.UUID != "" {
		id, err := uuid.Parse(w.UUID)
		if err != nil {
			return err
		}
		o.UUID = id
	}
	if w.Timestamp != nil {
		o.Timestamp = w.Timestamp.UTC()
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	known := map[string]bool{
		"type": true, "uuid": true, "property": true, "value": true,
		"old_value": true, "timestamp": true, "old_task": true,
	}
	for k, raw := range all {
		if known[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if o.Extra == nil {
			o.Extra = map[string]any{}
		}
		o.Extra[k] = v
	}
	return nil
}
