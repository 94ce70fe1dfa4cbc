package schema

import "go.mongodb.org/mongo-driver/bson"

// Validator returns the $jsonSchema collection validator matching the schema.
// Only types, enums and required keys are enforced in the database; length
// and pattern rules stay in ParseCreate/ParsePatch.
func (s *Schema) Validator() bson.M {
	props, required := properties(s.Fields)
	if s.Timestamps {
		props["createdAt"] = bson.M{"bsonType": "date"}
		props["updatedAt"] = bson.M{"bsonType": "date"}
	}
	props["_id"] = bson.M{"bsonType": "objectId"}

	doc := bson.M{"bsonType": "object", "properties": props}
	if len(required) > 0 {
		doc["required"] = required
	}
	return bson.M{"$jsonSchema": doc}
}

func properties(fields []Field) (bson.M, bson.A) {
	props := bson.M{}
	var required bson.A
	for _, f := range fields {
		props[f.Name] = f.jsonSchema()
		if f.Required || f.Name == SlugField {
			required = append(required, f.Name)
		}
	}
	return props, required
}

func (f Field) jsonSchema() bson.M {
	switch f.Kind {
	case String, HTML:
		p := bson.M{"bsonType": "string"}
		if len(f.Enum) > 0 {
			enum := make(bson.A, len(f.Enum))
			for i, e := range f.Enum {
				enum[i] = e
			}
			p["enum"] = enum
		}
		return p
	case Int:
		// Go ints are written as int32 when they fit.
		return bson.M{"bsonType": bson.A{"int", "long"}}
	case Bool:
		return bson.M{"bsonType": "bool"}
	case Strings:
		return bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}}
	case Time:
		return bson.M{"bsonType": "date"}
	case Object:
		props, required := properties(f.Fields)
		p := bson.M{"bsonType": "object", "properties": props}
		if len(required) > 0 {
			p["required"] = required
		}
		return p
	}
	return bson.M{}
}
