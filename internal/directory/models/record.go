package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Known JSON keys of a record.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldPhoneNumber = "phone_number"
	FieldAddress     = "address"
)

// Record is one person's entry in the directory.
//
// Invariants (enforced by the service on insert and load, not here):
//   - ID passes validation.NationalID and never changes after insert
//   - PhoneNumber passes validation.PhoneNumber
//
// Extra holds any additional fields supplied by clients. They are stored and
// written back verbatim but never interpreted.
type Record struct {
	ID          string
	Name        string
	PhoneNumber string
	Address     string
	Extra       map[string]json.RawMessage
}

// Clone returns a deep copy so callers never share Extra with the store.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// MarshalJSON writes the known fields first, then extra fields sorted by key,
// so repeated writes of the same state are byte-identical.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, raw []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	for _, f := range []struct{ key, val string }{
		{FieldID, r.ID},
		{FieldName, r.Name},
		{FieldPhoneNumber, r.PhoneNumber},
		{FieldAddress, r.Address},
	} {
		v, err := json.Marshal(f.val)
		if err != nil {
			return nil, err
		}
		write(f.key, v)
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if isKnownField(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := r.Extra[k]
		if !json.Valid(raw) {
			return nil, fmt.Errorf("extra field %q holds invalid JSON", k)
		}
		write(k, raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object. Known fields must be strings when
// present; everything else lands in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("record must be a JSON object")
	}
	out := Record{}
	for k, raw := range fields {
		switch k {
		case FieldID:
			if err := decodeString(k, raw, &out.ID); err != nil {
				return err
			}
		case FieldName:
			if err := decodeString(k, raw, &out.Name); err != nil {
				return err
			}
		case FieldPhoneNumber:
			if err := decodeString(k, raw, &out.PhoneNumber); err != nil {
				return err
			}
		case FieldAddress:
			if err := decodeString(k, raw, &out.Address); err != nil {
				return err
			}
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[k] = append(json.RawMessage(nil), raw...)
		}
	}
	*r = out
	return nil
}

func decodeString(key string, raw json.RawMessage, dst *string) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q must be a string: %w", key, err)
	}
	return nil
}

func isKnownField(key string) bool {
	switch key {
	case FieldID, FieldName, FieldPhoneNumber, FieldAddress:
		return true
	}
	return false
}
