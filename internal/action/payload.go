package action

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/healthline/healthline/internal/platform/civil"
)

// payload is the decoded argument object of an action. Values arrive as
// produced by encoding/json: strings, float64 or json.Number, bool, nil,
// []any and map[string]any.
type payload map[string]any

// absent reports whether key is missing, null, blank, or an empty
// list/object.
func (p payload) absent(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// missing returns the absent keys in the order given.
func (p payload) missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if p.absent(k) {
			out = append(out, k)
		}
	}
	return out
}

func (p payload) require(keys ...string) error {
	if m := p.missing(keys...); len(m) > 0 {
		return missingFields(msgMissing, m...)
	}
	return nil
}

// anyPresent reports whether at least one of keys carries a value.
func (p payload) anyPresent(keys ...string) bool {
	for _, k := range keys {
		if !p.absent(k) {
			return true
		}
	}
	return false
}

// only rejects keys outside allowed.
func (p payload) only(allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	var unknown []string
	for k := range p {
		if !ok[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return invalidFormat("unknown fields: " + strings.Join(unknown, ", "))
}

// reader extracts typed fields from a payload and keeps the first error, so
// a whole record can be read before checking once.
type reader struct {
	p   payload
	err error
}

func newReader(p payload) *reader { return &reader{p: p} }

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// text returns the trimmed string value of key, or nil when absent. Numbers
// are accepted and rendered in decimal.
func (r *reader) text(key string) *string {
	if r.err != nil || r.p.absent(key) {
		return nil
	}
	var s string
	switch v := r.p[key].(type) {
	case string:
		s = strings.TrimSpace(v)
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		r.fail(invalidFormat(key + " must be text"))
		return nil
	}
	return &s
}

// lower is text folded to lower case.
func (r *reader) lower(key string) *string {
	s := r.text(key)
	if s == nil {
		return nil
	}
	v := strings.ToLower(*s)
	return &v
}

func (r *reader) id(key string) *int64 {
	if r.err != nil || r.p.absent(key) {
		return nil
	}
	id, err := parseID(r.p[key])
	if err != nil {
		r.fail(invalidFormat(key + " must be a positive integer"))
		return nil
	}
	return &id
}

func parseID(v any) (int64, error) {
	var id int64
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		id = int64(t)
	case json.Number:
		n, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			return 0, err
		}
		id = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, err
		}
		id = n
	case int:
		id = int64(t)
	case int64:
		id = t
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%d is not positive", id)
	}
	return id, nil
}

func (r *reader) date(key string) *civil.Date {
	s := r.text(key)
	if s == nil {
		return nil
	}
	d, err := civil.Parse(*s)
	if err != nil {
		r.fail(invalidFormat(key + " must be YYYY-MM-DD"))
		return nil
	}
	return &d
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])(?::([0-5][0-9]))?$`)

// clock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func (r *reader) clock(key string) *string {
	s := r.text(key)
	if s == nil {
		return nil
	}
	m := clockPattern.FindStringSubmatch(*s)
	if m == nil {
		r.fail(invalidFormat(key + " must be a valid 24-hour time (HH:MM or HH:MM:SS)"))
		return nil
	}
	sec := m[3]
	if sec == "" {
		sec = "00"
	}
	v := m[1] + ":" + m[2] + ":" + sec
	return &v
}

// enum lowercases the value and checks it against allowed. A value outside
// the set is reported as missing so the caller asks again.
func (r *reader) enum(key string, allowed []string) *string {
	s := r.lower(key)
	if s == nil {
		return nil
	}
	for _, a := range allowed {
		if *s == a {
			return s
		}
	}
	r.fail(missingFields(key+" must be one of: "+strings.Join(allowed, ", "), key))
	return nil
}

// flag reads an optional boolean; def is returned when absent.
func (r *reader) flag(key string, def bool) bool {
	if r.err != nil || r.p.absent(key) {
		return def
	}
	switch v := r.p[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
	}
	r.fail(invalidFormat(key + " must be true or false"))
	return def
}
