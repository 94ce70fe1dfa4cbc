// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collection is one collection the service creates at startup. Validator is
// a $jsonSchema document, or nil for collections written only by this
// service's own stores.
type Collection struct {
	Name      string
	Validator bson.M
}

// Collections lists every collection EnsureAll manages.
func Collections() []Collection {
	var out []Collection
	for _, s := range resources.All() {
		out = append(out, Collection{Name: s.Collection, Validator: s.Validator()})
	}
	return append(out,
		Collection{Name: resources.Settings.Collection, Validator: resources.Settings.Validator()},
		Collection{Name: "users", Validator: usersSchema()},
		Collection{Name: "audit_logs"},
		Collection{Name: "ledger_entries"},
		Collection{Name: "media"},
		Collection{Name: "rate_limits"},
	)
}

// EnsureAll creates missing collections and attaches their validators.
// Deployments without collMod support (some DocumentDB versions) skip the
// validators with an info log.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing := map[string]bool{}
	if names, err := db.ListCollectionNames(ctx, bson.M{}); err == nil {
		for _, n := range names {
			existing[n] = true
		}
	} else {
		zap.L().Warn("listing collections failed; creating blindly", zap.Error(err))
	}

	var problems []string
	for _, c := range Collections() {
		if !existing[c.Name] {
			if err := db.CreateCollection(ctx, c.Name); err != nil && classify(err) != errExists {
				problems = append(problems, c.Name+": "+err.Error())
				continue
			}
			zap.L().Info("created collection", zap.String("collection", c.Name))
		}

		if c.Validator == nil {
			continue
		}
		if err := setValidator(ctx, db, c.Name, c.Validator); err != nil {
			if classify(err) == errUnsupported {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.Name))
				continue
			}
			problems = append(problems, c.Name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		// Existing documents that predate a validator stay updatable.
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

type errKind int

const (
	errOther errKind = iota
	errExists
	errUnsupported
)

// Server error codes: NamespaceExists, CommandNotFound, CommandNotSupported.
const (
	codeNamespaceExists     = 48
	codeCommandNotFound     = 59
	codeCommandNotSupported = 115
)

// classify sorts a command error by code, falling back to the message for
// servers that report these conditions without a code.
func classify(err error) errKind {
	if err == nil {
		return errOther
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeNamespaceExists:
			return errExists
		case codeCommandNotFound, codeCommandNotSupported:
			return errUnsupported
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "namespace exists"):
		return errExists
	case strings.Contains(msg, "no such command"), strings.Contains(msg, "not implemented"), strings.Contains(msg, "not supported"):
		return errUnsupported
	}
	return errOther
}

func usersSchema() bson.M {
	roles := bson.A{}
	for _, r := range models.AllRoles() {
		roles = append(roles, r)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "full_name", "role", "status"},
			"properties": bson.M{
				// Stored lowercase; sync folds before writing.
				"email":        bson.M{"bsonType": "string", "minLength": 3, "pattern": "^[^A-Z]*$"},
				"full_name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"avatar_url":   bson.M{"bsonType": bson.A{"string", "null"}},
				"role":         bson.M{"enum": roles},
				"status":       bson.M{"enum": bson.A{models.StatusActive, models.StatusDisabled}},
			},
		},
	}
}
