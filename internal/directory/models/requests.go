package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CreateRecordRequest is a full record payload. Each known field is nil when
// the client did not supply it (or supplied null), which is distinct from an
// empty string.
type CreateRecordRequest struct {
	ID          *string
	Name        *string
	PhoneNumber *string
	Address     *string
	Extra       map[string]json.RawMessage
}

// MissingFields lists the required fields absent from the request, in the
// order id, name, phone_number, address.
func (r *CreateRecordRequest) MissingFields() []string {
	var missing []string
	if r.ID == nil {
		missing = append(missing, FieldID)
	}
	if r.Name == nil {
		missing = append(missing, FieldName)
	}
	if r.PhoneNumber == nil {
		missing = append(missing, FieldPhoneNumber)
	}
	if r.Address == nil {
		missing = append(missing, FieldAddress)
	}
	return missing
}

// ToRecord builds the record to store. Call only after MissingFields is empty.
func (r *CreateRecordRequest) ToRecord() *Record {
	rec := &Record{
		ID:          deref(r.ID),
		Name:        deref(r.Name),
		PhoneNumber: deref(r.PhoneNumber),
		Address:     deref(r.Address),
	}
	if len(r.Extra) > 0 {
		rec.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			rec.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return rec
}

// UnmarshalJSON accepts a flat JSON object.
func (r *CreateRecordRequest) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := CreateRecordRequest{}
	for k, raw := range fields {
		var target **string
		switch k {
		case FieldID:
			target = &out.ID
		case FieldName:
			target = &out.Name
		case FieldPhoneNumber:
			target = &out.PhoneNumber
		case FieldAddress:
			target = &out.Address
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[k] = append(json.RawMessage(nil), raw...)
			continue
		}
		if *target, err = optionalString(k, raw); err != nil {
			return err
		}
	}
	*r = out
	return nil
}

// UpdateRecordRequest is a partial update. Nil fields are left untouched.
// The id is the lookup key and cannot be changed; an "id" key in the payload
// is dropped during decoding.
type UpdateRecordRequest struct {
	Name        *string
	PhoneNumber *string
	Address     *string
	Extra       map[string]json.RawMessage
}

// IsEmpty reports whether the request would change nothing.
func (r *UpdateRecordRequest) IsEmpty() bool {
	return r.Name == nil && r.PhoneNumber == nil && r.Address == nil && len(r.Extra) == 0
}

// ApplyTo merges the supplied fields into rec.
func (r *UpdateRecordRequest) ApplyTo(rec *Record) {
	if r.Name != nil {
		rec.Name = *r.Name
	}
	if r.PhoneNumber != nil {
		rec.PhoneNumber = *r.PhoneNumber
	}
	if r.Address != nil {
		rec.Address = *r.Address
	}
	if len(r.Extra) > 0 && rec.Extra == nil {
		rec.Extra = make(map[string]json.RawMessage, len(r.Extra))
	}
	for k, v := range r.Extra {
		rec.Extra[k] = append(json.RawMessage(nil), v...)
	}
}

// UnmarshalJSON accepts a flat JSON object.
func (r *UpdateRecordRequest) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := UpdateRecordRequest{}
	for k, raw := range fields {
		var target **string
		switch k {
		case FieldID:
			continue
		case FieldName:
			target = &out.Name
		case FieldPhoneNumber:
			target = &out.PhoneNumber
		case FieldAddress:
			target = &out.Address
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[k] = append(json.RawMessage(nil), raw...)
			continue
		}
		if *target, err = optionalString(k, raw); err != nil {
			return err
		}
	}
	*r = out
	return nil
}

// UpdatedFields lists the fields the request touches, known fields first.
func (r *UpdateRecordRequest) UpdatedFields() []string {
	var fields []string
	if r.Name != nil {
		fields = append(fields, FieldName)
	}
	if r.PhoneNumber != nil {
		fields = append(fields, FieldPhoneNumber)
	}
	if r.Address != nil {
		fields = append(fields, FieldAddress)
	}
	extra := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(fields, extra...)
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func optionalString(key string, raw json.RawMessage) (*string, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("field %q must be a string", key)
	}
	return &s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
