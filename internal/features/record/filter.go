package record

import (
	"fmt"

	common_models "go-reporting/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompileFilters turns the closed field/operator/value triples into a Mongo
// query. Unknown operators are rejected here as well as at config save time
// so a stale config can never smuggle a free-form predicate into the store.
func CompileFilters(filters []common_models.Filter) (bson.M, error) {
	query := bson.M{}

	for _, f := range filters {
		if f.Field == "" {
			return nil, fmt.Errorf("filter field is required")
		}

		switch f.Operator {
		case "", "eq":
			query[f.Field] = f.Value
		case "ne":
			query[f.Field] = bson.M{"$ne": f.Value}
		case "gt":
			query[f.Field] = bson.M{"$gt": f.Value}
		case "lt":
			query[f.Field] = bson.M{"$lt": f.Value}
		case "gte":
			query[f.Field] = bson.M{"$gte": f.Value}
		case "lte":
			query[f.Field] = bson.M{"$lte": f.Value}
		case "in":
			items, ok := f.Value.([]interface{})
			if !ok {
				return nil, fmt.Errorf("filter operator in requires a list value for field %s", f.Field)
			}
			query[f.Field] = bson.M{"$in": items}
		case "contains":
			strVal, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("filter operator contains requires a string value for field %s", f.Field)
			}
			query[f.Field] = bson.M{"$regex": primitive.Regex{Pattern: escapeRegex(strVal), Options: "i"}}
		case "starts_with":
			strVal, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("filter operator starts_with requires a string value for field %s", f.Field)
			}
			query[f.Field] = bson.M{"$regex": primitive.Regex{Pattern: "^" + escapeRegex(strVal), Options: "i"}}
		default:
			return nil, fmt.Errorf("unsupported filter operator: %s", f.Operator)
		}
	}

	return query, nil
}

var regexSpecials = map[rune]bool{
	'.': true, '*': true, '+': true, '?': true, '(': true, ')': true,
	'[': true, ']': true, '{': true, '}': true, '^': true, '$': true,
	'\\': true, '|': true,
}

func escapeRegex(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if regexSpecials[r] {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
