package schema

import (
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	errFilterBool = validation.NewError("validation_filter_bool", `must be "true" or "false"`)
	errFilterInt  = validation.NewError("validation_filter_int", "must be a whole number")
)

// ParseFilters builds the MongoDB filter for a list request. Unknown query
// parameters are ignored; a malformed boolean or number is a validation error
// keyed by the parameter name.
func (s *Schema) ParseFilters(q url.Values) (bson.M, error) {
	filter := bson.M{}
	errs := validation.Errors{}

	for _, f := range s.Filters {
		raw := strings.TrimSpace(q.Get(f.Param))
		if raw == "" {
			raw = f.Default
		}
		if raw == "" {
			continue
		}

		switch f.Kind {
		case Bool:
			switch raw {
			case "true":
				filter[f.Field] = true
			case "false":
				filter[f.Field] = false
			default:
				errs[f.Param] = errFilterBool
			}
		case Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs[f.Param] = errFilterInt
				continue
			}
			filter[f.Field] = n
		default:
			filter[f.Field] = raw
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return filter, nil
}
