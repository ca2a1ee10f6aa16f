// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/samber/oops"
)

// tolerantUint16 decodes a JSON number in [0, 65535] or a decimal string
// parsable into that range, because a host that stringifies YAML scalars
// before forwarding configuration renders every scalar as a JSON string.
type tolerantUint16 uint16

// UnmarshalJSON implements the native-or-stringified dialect for
// denyStatusCode described in spec.md §4.6 and §6.
func (v *tolerantUint16) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return oops.Code("CONFIG_ERROR").In("config.tolerantUint16").
				Wrapf(err, "decoding denyStatusCode string")
		}
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return oops.Code("CONFIG_ERROR").In("config.tolerantUint16").
				With("value", s).
				Errorf("invalid u16 string %q: %s", s, err)
		}
		*v = tolerantUint16(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return oops.Code("CONFIG_ERROR").In("config.tolerantUint16").
			Wrapf(err, "decoding denyStatusCode number")
	}
	if n < 0 || n > 65535 {
		return oops.Code("CONFIG_ERROR").In("config.tolerantUint16").
			With("value", n).
			Errorf("u16 out of range: %d", n)
	}
	*v = tolerantUint16(n)
	return nil
}

// MarshalJSON round-trips the decoded value as a native JSON number.
func (v tolerantUint16) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint16(v))
}

// tolerantBool decodes a JSON boolean or the exact strings "true"/"false".
type tolerantBool bool

// UnmarshalJSON implements the native-or-stringified dialect for
// test.expect described in spec.md §4.6 and §6.
func (v *tolerantBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return oops.Code("CONFIG_ERROR").In("config.tolerantBool").
				Wrapf(err, "decoding expect string")
		}
		switch s {
		case "true":
			*v = true
		case "false":
			*v = false
		default:
			return oops.Code("CONFIG_ERROR").In("config.tolerantBool").
				With("value", s).
				Errorf("invalid bool string %q", s)
		}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return oops.Code("CONFIG_ERROR").In("config.tolerantBool").
			Wrapf(err, "decoding expect boolean")
	}
	*v = tolerantBool(b)
	return nil
}

// MarshalJSON round-trips the decoded value as a native JSON boolean.
func (v tolerantBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(v))
}

// tolerantHeaders decodes a JSON object<string,string> or the empty JSON
// string "" (an empty map). A non-empty string is an error.
type tolerantHeaders map[string]string

// UnmarshalJSON implements the object-or-empty-string dialect for
// test.request.headers described in spec.md §4.6 and §6.
func (v *tolerantHeaders) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return oops.Code("CONFIG_ERROR").In("config.tolerantHeaders").
				Wrapf(err, "decoding headers string")
		}
		if s != "" {
			return oops.Code("CONFIG_ERROR").In("config.tolerantHeaders").
				With("value", s).
				Errorf("unexpected string for headers: %q", s)
		}
		*v = tolerantHeaders{}
		return nil
	}

	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return oops.Code("CONFIG_ERROR").In("config.tolerantHeaders").
			Wrapf(err, "decoding headers object")
	}
	*v = tolerantHeaders(m)
	return nil
}

// MarshalJSON round-trips the decoded value as a native JSON object.
func (v tolerantHeaders) MarshalJSON() ([]byte, error) {
	if v == nil {
		return json.Marshal(map[string]string{})
	}
	return json.Marshal(map[string]string(v))
}
