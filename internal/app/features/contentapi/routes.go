package contentapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	contentstore "github.com/mthunzitrust/mthunzisite/internal/app/store/content"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Routes returns the router for one collection. Reads are public; writes
// pass through the guard.
func Routes[T any](h *Handler[T], guard *authz.Guard) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(pr chi.Router) {
		pr.Use(guard.Require)
		pr.Post("/", h.Create)
		pr.Put("/{id}", h.Update)
		pr.Delete("/{id}", h.Delete)
	})

	return r
}

// Deps are the shared dependencies of every content router.
type Deps struct {
	DB     *mongo.Database
	Guard  *authz.Guard
	Audit  *auditlog.Logger
	Logger *zap.Logger
}

// MountAll mounts one router per catalog collection at /<collection>.
func MountAll(r chi.Router, d Deps) {
	mount[models.Achievement](r, d, resources.Achievements)
	mount[models.Project](r, d, resources.Projects)
	mount[models.Voice](r, d, resources.Voices)
	mount[models.Blog](r, d, resources.Blogs)
	mount[models.Program](r, d, resources.Programs)
	mount[models.Job](r, d, resources.Jobs)
	mount[models.GalleryItem](r, d, resources.Gallery)
	mount[models.Partner](r, d, resources.Partners)
	mount[models.TeamMember](r, d, resources.Team)
}

func mount[T any](r chi.Router, d Deps, s *schema.Schema) {
	h := NewHandler(contentstore.New[T](d.DB, s), d.Audit, d.Logger)
	r.Mount("/"+s.Collection, Routes(h, d.Guard))
}
