// Package schema holds the relational record types: the patent aggregate,
// raw entity mentions and their canonical counterparts.  Every type is a
// gorm model; table names are lower-case.
package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/turtacn/patentdb/pkg/errors"
)

// Fields is a flat field-name to scalar mapping as produced by the patent
// parser.  Record constructors decode it by the records' mapstructure tags.
type Fields map[string]any

// String returns the named field as a string ("" when absent).
func (f Fields) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// dateLayouts are the date spellings the parsers emit.
var dateLayouts = []string{"2006-01-02", "20060102", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// dateHook decodes date strings into time.Time and *time.Time.  Blank
// strings become the zero time (or nil).
func dateHook(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch to {
	case reflect.TypeOf(time.Time{}):
		if strings.TrimSpace(s) == "" {
			return time.Time{}, nil
		}
		return parseDate(s)
	case reflect.TypeOf(&time.Time{}):
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		t, err := parseDate(s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return data, nil
}

// Decode fills out (a pointer to a record) from f.  Unknown keys are
// ignored; scalars are converted weakly ("12" into an int field).
func Decode(f Fields, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       dateHook,
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build field decoder")
	}
	if err := dec.Decode(map[string]any(f)); err != nil {
		return errors.Wrap(err, errors.ErrCodePatentParseFailed, fmt.Sprintf("decode %T", out))
	}
	return nil
}

// stringFields converts voted attribute values for Decode.
func stringFields(m map[string]string) Fields {
	f := make(Fields, len(m))
	for k, v := range m {
		f[k] = v
	}
	return f
}

//Personal.AI order the ending
