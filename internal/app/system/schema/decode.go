package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/htmlsanitize"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/slug"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrMalformed is returned when a request body is not a JSON object.
var ErrMalformed = errors.New("request body must be a JSON object")

var (
	errNotString  = validation.NewError("validation_is_string", "must be a string")
	errNotInt     = validation.NewError("validation_is_int", "must be a whole number")
	errNotBool    = validation.NewError("validation_is_bool", "must be true or false")
	errNotStrings = validation.NewError("validation_is_string_list", "must be a list of strings")
	errNotTime    = validation.NewError("validation_is_time", "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	errNotObject  = validation.NewError("validation_is_object", "must be an object")
	errNotNull    = validation.NewError("validation_not_null", "cannot be null")
	errNoSlug     = validation.NewError("validation_slug_underivable", "cannot be derived from the title; supply a slug")
)

type object = map[string]json.RawMessage

// Patch is a merge update. Set holds dotted keys to overwrite, Unset holds
// dotted keys to remove.
type Patch struct {
	Set   bson.M
	Unset bson.M
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Unset) == 0
}

// Update returns the MongoDB update document for the patch.
func (p Patch) Update() bson.M {
	u := bson.M{}
	if len(p.Set) > 0 {
		u["$set"] = p.Set
	}
	if len(p.Unset) > 0 {
		u["$unset"] = p.Unset
	}
	return u
}

// Overlaps reports whether the patch writes path, a parent of path, or a
// child of path. MongoDB rejects updates where two operators touch
// overlapping paths.
func (p Patch) Overlaps(path string) bool {
	for _, m := range []bson.M{p.Set, p.Unset} {
		for key := range m {
			if key == path || strings.HasPrefix(key, path+".") || strings.HasPrefix(path, key+".") {
				return true
			}
		}
	}
	return false
}

// ParseCreate validates a create payload and returns the document to insert,
// with defaults applied, the slug derived when absent, and timestamps set.
// Validation problems come back as validation.Errors keyed by field path.
func (s *Schema) ParseCreate(data []byte) (bson.M, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	// An empty slug on create means "derive it".
	if s.Slugged() && blank(raw[SlugField]) {
		delete(raw, SlugField)
	}

	doc := bson.M{}
	errs := validation.Errors{}
	build(s.Fields, raw, "", doc, errs)
	if s.Slugged() {
		s.deriveSlug(doc, errs)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if s.Timestamps {
		now := Now()
		doc["createdAt"] = now
		doc["updatedAt"] = now
	}
	return doc, nil
}

// ParsePatch validates an update payload and returns the merge update. Keys
// absent from the payload are not touched; null removes optional keys.
func (s *Schema) ParsePatch(data []byte) (Patch, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return Patch{}, err
	}

	p := Patch{Set: bson.M{}, Unset: bson.M{}}
	errs := validation.Errors{}
	merge(s.Fields, raw, "", p, errs)
	if len(errs) > 0 {
		return Patch{}, errs
	}

	if s.Timestamps && !p.Empty() {
		p.Set["updatedAt"] = Now()
	}
	return p, nil
}

// Defaults returns every declared default as a dotted key. Used as the
// $setOnInsert document when a singleton is materialized.
func (s *Schema) Defaults() bson.M {
	out := bson.M{}
	collectDefaults(s.Fields, "", out)
	return out
}

func build(fields []Field, raw object, prefix string, doc bson.M, errs validation.Errors) {
	for _, f := range fields {
		key := prefix + f.Name
		val, present := raw[f.Name]
		if present && isNull(val) {
			present = false
		}

		if f.Kind == Object {
			var nested object
			if present {
				if err := json.Unmarshal(val, &nested); err != nil || nested == nil {
					errs[key] = errNotObject
					continue
				}
			}
			sub := bson.M{}
			build(f.Fields, nested, key+".", sub, errs)
			doc[f.Name] = sub
			continue
		}

		if !present {
			if f.Required {
				errs[key] = validation.ErrRequired
				continue
			}
			if v := f.defaultValue(); v != nil {
				doc[f.Name] = v
			}
			continue
		}

		v, err := f.value(val, f.Required)
		if err != nil {
			errs[key] = err
			continue
		}
		doc[f.Name] = v
	}
}

func merge(fields []Field, raw object, prefix string, p Patch, errs validation.Errors) {
	for _, f := range fields {
		val, present := raw[f.Name]
		if !present {
			continue
		}
		key := prefix + f.Name

		if isNull(val) {
			if f.Required || key == SlugField {
				errs[key] = errNotNull
				continue
			}
			// Lists with a default go back to it so they read the same as on create.
			if f.Kind == Strings && f.Default != nil {
				p.Set[key] = f.defaultValue()
				continue
			}
			p.Unset[key] = ""
			continue
		}

		if f.Kind == Object {
			var nested object
			if err := json.Unmarshal(val, &nested); err != nil || nested == nil {
				errs[key] = errNotObject
				continue
			}
			merge(f.Fields, nested, key+".", p, errs)
			continue
		}

		v, err := f.value(val, false)
		if err != nil {
			errs[key] = err
			continue
		}
		p.Set[key] = v
	}
}

func collectDefaults(fields []Field, prefix string, out bson.M) {
	for _, f := range fields {
		if f.Kind == Object {
			collectDefaults(f.Fields, prefix+f.Name+".", out)
			continue
		}
		if v := f.defaultValue(); v != nil {
			out[prefix+f.Name] = v
		}
	}
}

func (s *Schema) deriveSlug(doc bson.M, errs validation.Errors) {
	if v, _ := doc[SlugField].(string); v != "" {
		return
	}
	if _, bad := errs[SlugField]; bad {
		return
	}
	src, _ := doc[s.SlugSource].(string)
	derived := slug.Derive(src)
	if derived == "" {
		if _, bad := errs[s.SlugSource]; !bad {
			errs[SlugField] = errNoSlug
		}
		return
	}
	doc[SlugField] = derived
}

// value decodes one present, non-null value and runs the field's rules.
func (f Field) value(raw json.RawMessage, required bool) (any, error) {
	v, err := f.decode(raw)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(v, f.rules(required)...); err != nil {
		return nil, err
	}
	return v, nil
}

func (f Field) decode(raw json.RawMessage) (any, error) {
	switch f.Kind {
	case String, HTML:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errNotString
		}
		s = strings.TrimSpace(s)
		if f.Kind == HTML {
			return htmlsanitize.Sanitize(s), nil
		}
		return s, nil
	case Int:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, errNotInt
		}
		return n, nil
	case Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, errNotBool
		}
		return b, nil
	case Strings:
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errNotStrings
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	case Time:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errNotTime
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, errNotTime
		}
		return t, nil
	}
	return nil, fmt.Errorf("field %s: unsupported kind %s", f.Name, f.Kind)
}

func (f Field) rules(required bool) []validation.Rule {
	var rules []validation.Rule
	switch f.Kind {
	case String, HTML:
		if required || len(f.Enum) > 0 || f.Name == SlugField {
			rules = append(rules, validation.Required)
		}
		if len(f.Enum) > 0 {
			allowed := make([]interface{}, len(f.Enum))
			for i, e := range f.Enum {
				allowed[i] = e
			}
			rules = append(rules, validation.In(allowed...).Error("must be one of: "+strings.Join(f.Enum, ", ")))
		}
		if f.Pattern != nil {
			rules = append(rules, validation.Match(f.Pattern))
		}
		if f.MaxLen > 0 {
			rules = append(rules, validation.RuneLength(0, f.MaxLen))
		}
	case Int:
		if f.Min != nil {
			rules = append(rules, validation.Min(*f.Min))
		}
		if f.Max != nil {
			rules = append(rules, validation.Max(*f.Max))
		}
	}
	return append(rules, f.Rules...)
}

func (f Field) defaultValue() any {
	switch d := f.Default.(type) {
	case nil:
		return nil
	case func() any:
		return d()
	case []string:
		return append([]string{}, d...)
	default:
		return d
	}
}

func decodeObject(data []byte) (object, error) {
	var raw object
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, ErrMalformed
	}
	return raw, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func blank(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return strings.TrimSpace(s) == ""
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
