// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and is idempotent. Errors from every
collection are aggregated so one bad index does not hide another.

The unique indexes here carry two API guarantees: a duplicate slug in a
content collection is a conflict, and site_settings can never hold more
than one document.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for coll, models := range Desired() {
		if err := ensureIndexSet(ctx, db.Collection(coll), models); err != nil {
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Desired returns every index the service relies on, keyed by collection.
func Desired() map[string][]mongo.IndexModel {
	out := map[string][]mongo.IndexModel{}
	for _, s := range resources.All() {
		out[s.Collection] = ContentIndexes(s)
	}

	out[resources.Settings.Collection] = []mongo.IndexModel{
		index("uniq_sitesettings_singleton", true, asc("singleton")),
	}

	out["users"] = []mongo.IndexModel{
		// Sync upserts by email.
		index("uniq_users_email", true, asc("email")),
		index("idx_users_role_status_fullnameci_id", false, asc("role"), asc("status"), asc("full_name_ci"), asc("_id")),
		index("idx_users_fullnameci_id", false, asc("full_name_ci"), asc("_id")),
	}

	out["audit_logs"] = []mongo.IndexModel{
		index("idx_audit_created", false, desc("created_at")),
		index("idx_audit_category_created", false, asc("category"), desc("created_at")),
		index("idx_audit_event_created", false, asc("event_type"), desc("created_at")),
		index("idx_audit_user_created", false, asc("user_id"), desc("created_at")),
		index("idx_audit_actor_created", false, asc("actor_id"), desc("created_at")),
	}

	ttl := index("idx_ratelimit_ttl", false, asc("last_attempt"))
	ttl.Options.SetExpireAfterSeconds(int32((24 * time.Hour).Seconds()))
	out["rate_limits"] = []mongo.IndexModel{
		// "email:..." and "ip:..." keys
		index("uniq_ratelimit_key", true, asc("key")),
		ttl,
	}

	out["media"] = []mongo.IndexModel{
		index("idx_media_created", false, desc("created_at"), desc("_id")),
		index("idx_media_nameci", false, asc("name_ci")),
	}

	errClass := index("idx_ledger_error_class", false, asc("error_class"), desc("started_at"))
	errClass.Options.SetSparse(true)
	out["ledger_entries"] = []mongo.IndexModel{
		index("idx_ledger_started", false, desc("started_at")),
		index("uniq_ledger_request_id", true, asc("request_id")),
		index("idx_ledger_actor", false, asc("actor_type"), asc("actor_id"), desc("started_at")),
		index("idx_ledger_path", false, asc("path"), desc("started_at")),
		index("idx_ledger_status", false, asc("status_code"), desc("started_at")),
		errClass,
	}

	return out
}

// ContentIndexes returns the indexes a content collection needs: a unique
// slug for slug-addressable schemas and one index backing the default sort.
func ContentIndexes(s *schema.Schema) []mongo.IndexModel {
	var out []mongo.IndexModel
	if s.Slugged() {
		out = append(out, index("uniq_"+s.Collection+"_slug", true, asc(schema.SlugField)))
	}
	if len(s.Sort) > 0 {
		out = append(out, mongo.IndexModel{
			Keys:    s.Sort,
			Options: options.Index().SetName("idx_" + s.Collection + "_sort"),
		})
	}
	return out
}

func index(name string, unique bool, keys ...bson.E) mongo.IndexModel {
	opts := options.Index().SetName(name)
	if unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: bson.D(keys), Options: opts}
}

func asc(key string) bson.E  { return bson.E{Key: key, Value: 1} }
func desc(key string) bson.E { return bson.E{Key: key, Value: -1} }

/* -------------------------------------------------------------------------- */
/* Reconcile desired indexes against what the collection already has          */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isDuplicateKeyErr(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// listIndexes returns the collection's indexes keyed by key signature. A
// collection that does not exist yet has none.
func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		zap.L().Warn("listing indexes failed; creating without reconciliation",
			zap.String("collection", coll.Name()),
			zap.Error(err))
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		unique := m.Options.Unique != nil && *m.Options.Unique
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
		}

		if ex, ok := existing[sig]; ok {
			if ex.Unique == unique {
				zap.L().Debug("index present", fields...)
				continue
			}
			// Uniqueness changed: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index (duplicates present)", name))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
