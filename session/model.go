package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// User is the profile record returned by the login endpoint and kept for the
// lifetime of a session.
//
// Fields not modelled here are preserved in Extra and written back on encode.
// Extra also keeps the verbatim JSON of a known field whose form differs from
// its Go encoding, e.g. "id":"7" or "is_superuser":"false", so a decoded
// record encodes back to the same values.
type User struct {
	// ID accepts a JSON number or a string of digits. Anything else
	// decodes to 0.
	ID       int64
	Username string
	Email    string
	Role     string
	// IsSuperuser is set only by a JSON true.
	IsSuperuser bool

	Extra map[string]json.RawMessage
}

// State is the in-memory view of a persisted session. An empty Token means the
// session is unauthenticated regardless of User.
type State struct {
	Token string
	User  *User
}

const (
	fieldID          = "id"
	fieldUsername    = "username"
	fieldEmail       = "email"
	fieldRole        = "role"
	fieldIsSuperuser = "is_superuser"
)

// Clone returns a deep copy of u. Clone of nil is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{Token: s.Token, User: s.User.Clone()}
}

// MarshalJSON writes Extra merged with the known fields. A verbatim value in
// Extra is kept while it still decodes to the field's current value; zero
// fields without one are omitted.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(u.Extra)+5)
	for k, v := range u.Extra {
		out[k] = v
	}

	put := func(key string, zero, matches bool, value any) error {
		if _, ok := out[key]; ok && matches {
			return nil
		}
		if zero {
			delete(out, key)
			return nil
		}
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = data
		return nil
	}

	id, _ := decodeID(out[fieldID])
	if err := put(fieldID, u.ID == 0, id == u.ID, u.ID); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		key   string
		value string
	}{
		{fieldUsername, u.Username},
		{fieldEmail, u.Email},
		{fieldRole, u.Role},
	} {
		s, _, _ := decodeString(out[f.key])
		if err := put(f.key, f.value == "", s == f.value, f.value); err != nil {
			return nil, err
		}
	}
	super, _ := decodeSuperuser(out[fieldIsSuperuser])
	if err := put(fieldIsSuperuser, !u.IsSuperuser, super == u.IsSuperuser, u.IsSuperuser); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the known fields and keeps everything else in Extra.
// Only a string-typed field holding a non-string other than null is an error.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out User
	var exact bool
	for key, value := range raw {
		switch key {
		case fieldID:
			out.ID, exact = decodeID(value)
		case fieldIsSuperuser:
			out.IsSuperuser, exact = decodeSuperuser(value)
		case fieldUsername, fieldEmail, fieldRole:
			s, ok, err := decodeString(value)
			if err != nil {
				return fmt.Errorf("user field %s: %w", key, err)
			}
			exact = ok
			switch key {
			case fieldUsername:
				out.Username = s
			case fieldEmail:
				out.Email = s
			default:
				out.Role = s
			}
		default:
			continue
		}
		if exact {
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		out.Extra = raw
	}
	*u = out
	return nil
}

// decodeID reads a number or digit string. exact reports whether the
// canonical encoding of the result is byte-identical to raw.
func decodeID(raw json.RawMessage) (id int64, exact bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, id != 0 && string(raw) == strconv.FormatInt(id, 10)
}

// decodeSuperuser is true only for a JSON true. A stored false is not exact
// because the encoder omits false.
func decodeSuperuser(raw json.RawMessage) (v, exact bool) {
	v = bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
	return v, v
}

// decodeString accepts a JSON string or null.
func decodeString(raw json.RawMessage) (s string, exact bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, err
	}
	canonical, _ := json.Marshal(s)
	return s, s != "" && bytes.Equal(canonical, raw), nil
}
