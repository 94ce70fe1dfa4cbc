// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/mthunzitrust/mthunzisite/internal/app/store/audit"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Logging destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration, one destination per category.
type Config struct {
	// Auth covers identity sync, denials and logout.
	Auth string
	// Admin covers role changes, settings and media.
	Admin string
	// Content covers create, update and delete of content documents.
	Content string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store limits logging to zap.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	case audit.CategoryContent:
		s = l.config.Content
	}
	if s == "" {
		return All
	}
	return s
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// event starts an event from the request: client IP, user agent and the
// principal the guard attached, if any.
func event(r *http.Request, category, eventType string, success bool) audit.Event {
	e := audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        network.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
	if p, ok := authz.PrincipalFrom(r.Context()); ok {
		e.Actor = p.Label()
		if p.Kind == authz.KindSession {
			if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
				e.ActorID = &oid
			}
		}
	}
	return e
}

// --- Authentication Events ---

// IdentitySynced logs a successful identity sync that opened a session.
func (l *Logger) IdentitySynced(r *http.Request, userID primitive.ObjectID, email, role string) {
	e := event(r, audit.CategoryAuth, audit.EventIdentitySynced, true)
	e.UserID = &userID
	e.Actor = email
	e.Details = map[string]string{"role": role}
	l.Log(r.Context(), e)
}

// AccessDenied logs a verified identity that failed the access policy.
func (l *Logger) AccessDenied(r *http.Request, userID *primitive.ObjectID, email string) {
	e := event(r, audit.CategoryAuth, audit.EventAccessDenied, false)
	e.UserID = userID
	if e.Actor == "" {
		e.Actor = email
	}
	e.FailureReason = "not_permitted"
	e.Details = map[string]string{"email": email, "path": r.URL.Path}
	l.Log(r.Context(), e)
}

// SyncFailed logs an identity sync the provider could not verify. email is
// empty when the provider returned nothing usable.
func (l *Logger) SyncFailed(r *http.Request, email, reason string) {
	e := event(r, audit.CategoryAuth, audit.EventSyncFailed, false)
	e.Actor = email
	e.FailureReason = reason
	l.Log(r.Context(), e)
}

// SyncRateLimited logs a sync refused because of repeated failures.
func (l *Logger) SyncRateLimited(r *http.Request, email string) {
	e := event(r, audit.CategoryAuth, audit.EventSyncRateLimited, false)
	e.Actor = email
	e.FailureReason = "rate_limited"
	l.Log(r.Context(), e)
}

// Logout logs the end of a session.
func (l *Logger) Logout(r *http.Request, userIDStr, email string) {
	e := event(r, audit.CategoryAuth, audit.EventLogout, true)
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		e.UserID = &oid
	}
	e.Actor = email
	l.Log(r.Context(), e)
}

// --- Admin Events ---

// RoleChanged logs a role change on a user.
func (l *Logger) RoleChanged(r *http.Request, targetUserID primitive.ObjectID, email, oldRole, newRole string) {
	e := event(r, audit.CategoryAdmin, audit.EventRoleChanged, true)
	e.UserID = &targetUserID
	e.Details = map[string]string{
		"email":    email,
		"old_role": oldRole,
		"new_role": newRole,
	}
	l.Log(r.Context(), e)
}

// StatusChanged logs a user being enabled or disabled.
func (l *Logger) StatusChanged(r *http.Request, targetUserID primitive.ObjectID, email, oldStatus, newStatus string) {
	e := event(r, audit.CategoryAdmin, audit.EventStatusChanged, true)
	e.UserID = &targetUserID
	e.Details = map[string]string{
		"email":      email,
		"old_status": oldStatus,
		"new_status": newStatus,
	}
	l.Log(r.Context(), e)
}

// SettingsUpdated logs a write to the site settings. fields are the dotted
// keys the update touched.
func (l *Logger) SettingsUpdated(r *http.Request, fields []string, created bool) {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	e := event(r, audit.CategoryAdmin, audit.EventSettingsUpdated, true)
	e.Details = map[string]string{"fields_changed": strings.Join(sorted, ",")}
	if created {
		e.Details["created"] = "true"
	}
	l.Log(r.Context(), e)
}

// MediaUploaded logs a stored upload.
func (l *Logger) MediaUploaded(r *http.Request, mediaID primitive.ObjectID, name, contentType string) {
	e := event(r, audit.CategoryAdmin, audit.EventMediaUploaded, true)
	e.Details = map[string]string{
		"media_id":     mediaID.Hex(),
		"name":         name,
		"content_type": contentType,
	}
	l.Log(r.Context(), e)
}

// MediaDeleted logs a removed upload.
func (l *Logger) MediaDeleted(r *http.Request, mediaID primitive.ObjectID, name string) {
	e := event(r, audit.CategoryAdmin, audit.EventMediaDeleted, true)
	e.Details = map[string]string{
		"media_id": mediaID.Hex(),
		"name":     name,
	}
	l.Log(r.Context(), e)
}

// --- Content Events ---

// ContentChanged logs a create, update or delete of a content document.
// eventType is one of audit.EventContentCreated, EventContentUpdated or
// EventContentDeleted.
func (l *Logger) ContentChanged(r *http.Request, eventType, collection, id, slug string) {
	e := event(r, audit.CategoryContent, eventType, true)
	e.Details = map[string]string{
		"collection": collection,
		"id":         id,
	}
	if slug != "" {
		e.Details["slug"] = slug
	}
	l.Log(r.Context(), e)
}
