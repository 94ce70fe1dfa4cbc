package contentapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	contentstore "github.com/mthunzitrust/mthunzisite/internal/app/store/content"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"github.com/mthunzitrust/mthunzisite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key"

func newRouter[T any](t *testing.T, db *mongo.Database, s *schema.Schema) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	guard := authz.NewGuard(authz.NewPolicy(nil, []string{"admin", "superadmin"}), testAPIKey, logger)
	audit := auditlog.New(nil, logger, auditlog.Config{})
	h := NewHandler(contentstore.New[T](db, s), audit, logger)
	return Routes(h, guard)
}

func do(t *testing.T, router http.Handler, req *http.Request) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func adminJSON(method, target, body string) *http.Request {
	return testutil.WithUser(testutil.NewJSONRequest(method, target, body), testutil.AdminUser())
}

func TestCreate_DerivesSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Achievement](t, db, resources.Achievements)

	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"title":"100 Trees Planted at Chimwasongwe!","year":2024}`))
	rec.AssertStatus(t, http.StatusCreated)

	var got models.Achievement
	rec.Decode(t, &got)
	if got.Slug != "100-trees-planted-at-chimwasongwe" {
		t.Errorf("slug = %q, want derived slug", got.Slug)
	}
	if got.ID.IsZero() {
		t.Error("id should be set")
	}
	if got.Order != models.DefaultOrder {
		t.Errorf("order = %d, want default %d", got.Order, models.DefaultOrder)
	}
	if got.Images == nil {
		t.Error("images should default to an empty list")
	}
	if got.CreatedAt.IsZero() || !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("createdAt/updatedAt = %v/%v, want equal and set", got.CreatedAt, got.UpdatedAt)
	}
}

func TestCreate_DuplicateSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Project](t, db, resources.Projects)

	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"title":"Clean Water"}`))
	rec.AssertStatus(t, http.StatusCreated)

	rec = do(t, router, adminJSON(http.MethodPost, "/", `{"title":"Clean  Water!"}`))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertMessage(t, "Project with this slug already exists")
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Project](t, db, resources.Projects)

	tests := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"missing title", `{"summary":"x"}`, "title", ""},
		{"bad enum", `{"title":"A","status":"abandoned"}`, "status", ""},
		{"bad slug", `{"title":"A","slug":"Not A Slug"}`, "slug", ""},
		{"wrong type", `{"title":"A","featured":"yes"}`, "featured", ""},
		{"underivable slug", `{"title":"!!!"}`, "slug", ""},
		{"malformed json", `{"title":`, "", "Invalid JSON payload"},
		{"not an object", `["title"]`, "", "Invalid JSON payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, adminJSON(http.MethodPost, "/", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)

			var resp struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}
			rec.Decode(t, &resp)
			if tt.message != "" && resp.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Message, tt.message)
			}
			if tt.field != "" {
				if resp.Message != "Validation failed" {
					t.Errorf("message = %q, want Validation failed", resp.Message)
				}
				if _, ok := resp.Errors[tt.field]; !ok {
					t.Errorf("errors = %v, want key %q", resp.Errors, tt.field)
				}
			}
		})
	}
}

func TestGet_BySlugAndID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Project](t, db, resources.Projects)

	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"title":"School Feeding"}`))
	var created models.Project
	rec.Decode(t, &created)

	for _, key := range []string{"school-feeding", created.ID.Hex()} {
		rec := do(t, router, testutil.NewRequest(http.MethodGet, "/"+key))
		rec.AssertStatus(t, http.StatusOK)
		var got models.Project
		rec.Decode(t, &got)
		if got.ID != created.ID {
			t.Errorf("GET /%s id = %v, want %v", key, got.ID, created.ID)
		}
	}

	rec = do(t, router, testutil.NewRequest(http.MethodGet, "/no-such-project"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertMessage(t, "Project not found")
}

func TestGet_IDAddressedRejectsMalformedID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Voice](t, db, resources.Voices)

	rec := do(t, router, testutil.NewRequest(http.MethodGet, "/not-an-id"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertMessage(t, "Voice not found")
}

func TestList_EmptyIsArray(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Partner](t, db, resources.Partners)

	rec := do(t, router, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusOK)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestList_VoicesActiveDefault(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Voice](t, db, resources.Voices)

	do(t, router, adminJSON(http.MethodPost, "/", `{"name":"Active","quote":"We have water now."}`)).AssertStatus(t, http.StatusCreated)
	do(t, router, adminJSON(http.MethodPost, "/", `{"name":"Hidden","quote":"Old story.","active":false}`)).AssertStatus(t, http.StatusCreated)

	list := func(target string) []models.Voice {
		rec := do(t, router, testutil.NewRequest(http.MethodGet, target))
		rec.AssertStatus(t, http.StatusOK)
		var out []models.Voice
		rec.Decode(t, &out)
		return out
	}

	if got := list("/"); len(got) != 1 || got[0].Name != "Active" {
		t.Errorf("GET / = %v, want only the active voice", got)
	}
	if got := list("/?active=false"); len(got) != 1 || got[0].Name != "Hidden" {
		t.Errorf("GET /?active=false = %v, want only the inactive voice", got)
	}

	rec := do(t, router, testutil.NewRequest(http.MethodGet, "/?active=yes"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestList_FiltersAndSort(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Achievement](t, db, resources.Achievements)

	bodies := []string{
		`{"title":"Old","year":2019,"category":"water"}`,
		`{"title":"New","year":2024,"category":"water","featured":true}`,
		`{"title":"Other","year":2022,"category":"health"}`,
	}
	for _, b := range bodies {
		do(t, router, adminJSON(http.MethodPost, "/", b)).AssertStatus(t, http.StatusCreated)
	}

	rec := do(t, router, testutil.NewRequest(http.MethodGet, "/?category=water"))
	var water []models.Achievement
	rec.Decode(t, &water)
	if len(water) != 2 || water[0].Title != "New" {
		t.Errorf("category=water = %v, want [New Old] by year desc", water)
	}

	rec = do(t, router, testutil.NewRequest(http.MethodGet, "/?featured=true"))
	var featured []models.Achievement
	rec.Decode(t, &featured)
	if len(featured) != 1 || featured[0].Title != "New" {
		t.Errorf("featured=true = %v, want [New]", featured)
	}

	rec = do(t, router, testutil.NewRequest(http.MethodGet, "/?year=2022"))
	var byYear []models.Achievement
	rec.Decode(t, &byYear)
	if len(byYear) != 1 || byYear[0].Title != "Other" {
		t.Errorf("year=2022 = %v, want [Other]", byYear)
	}

	do(t, router, testutil.NewRequest(http.MethodGet, "/?year=recent")).AssertStatus(t, http.StatusBadRequest)
}

func TestUpdate_MergeSemantics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Project](t, db, resources.Projects)

	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"title":"Boreholes","featured":true,"summary":"Drilling"}`))
	var created models.Project
	rec.Decode(t, &created)
	path := "/" + created.ID.Hex()

	// An empty body changes nothing, including updatedAt.
	rec = do(t, router, adminJSON(http.MethodPut, path, `{}`))
	rec.AssertStatus(t, http.StatusOK)
	var same models.Project
	rec.Decode(t, &same)
	if !same.UpdatedAt.Equal(created.UpdatedAt) || !same.Featured {
		t.Errorf("empty update changed the document: %+v", same)
	}

	// An explicit false is written; other fields stay.
	rec = do(t, router, adminJSON(http.MethodPut, path, `{"featured":false}`))
	rec.AssertStatus(t, http.StatusOK)
	var updated models.Project
	rec.Decode(t, &updated)
	if updated.Featured {
		t.Error("featured should be false after update")
	}
	if updated.Summary != "Drilling" || updated.Title != "Boreholes" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("updatedAt went backwards: %v", updated.UpdatedAt)
	}

	// null removes an optional field.
	rec = do(t, router, adminJSON(http.MethodPut, path, `{"summary":null}`))
	rec.AssertStatus(t, http.StatusOK)
	var cleared models.Project
	rec.Decode(t, &cleared)
	if cleared.Summary != "" {
		t.Errorf("summary = %q, want removed", cleared.Summary)
	}

	// null on a required field is rejected.
	rec = do(t, router, adminJSON(http.MethodPut, path, `{"title":null}`))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestUpdate_ExplicitZeroAndClearedLists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Project](t, db, resources.Projects)

	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"title":"Seed Bank","beneficiaries":120,"partners":["WFP"]}`))
	rec.AssertStatus(t, http.StatusCreated)
	var created models.Project
	rec.Decode(t, &created)
	path := "/" + created.ID.Hex()

	var never map[string]json.RawMessage
	rec.Decode(t, &never)
	if string(never["budget"]) != "null" {
		t.Errorf("budget never given = %s, want null", never["budget"])
	}

	rec = do(t, router, adminJSON(http.MethodPut, path, `{"beneficiaries":0,"budget":0,"partners":null}`))
	rec.AssertStatus(t, http.StatusOK)

	for _, r := range []*testutil.ResponseRecorder{rec, do(t, router, testutil.NewRequest(http.MethodGet, path))} {
		r.AssertStatus(t, http.StatusOK)
		var body map[string]json.RawMessage
		r.Decode(t, &body)
		for _, key := range []string{"beneficiaries", "budget"} {
			if got, ok := body[key]; !ok || string(got) != "0" {
				t.Errorf("%s = %s (present=%v), want 0", key, got, ok)
			}
		}
		if string(body["partners"]) != "[]" {
			t.Errorf("partners = %s, want []", body["partners"])
		}
	}
}

func TestUpdate_SlugCollision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Blog](t, db, resources.Blogs)

	do(t, router, adminJSON(http.MethodPost, "/", `{"title":"First Post","content":"<p>a</p>"}`)).AssertStatus(t, http.StatusCreated)
	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"title":"Second Post","content":"<p>b</p>"}`))
	var second models.Blog
	rec.Decode(t, &second)

	rec = do(t, router, adminJSON(http.MethodPut, "/"+second.ID.Hex(), `{"slug":"first-post"}`))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertMessage(t, "Blog with this slug already exists")
}

func TestUpdate_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.Job](t, db, resources.Jobs)

	for _, id := range []string{"bogus", "64b7f0c2a1b2c3d4e5f60718"} {
		rec := do(t, router, adminJSON(http.MethodPut, "/"+id, `{"status":"closed"}`))
		rec.AssertStatus(t, http.StatusNotFound)
		rec.AssertMessage(t, "Job not found")
	}
}

func TestDelete_Twice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.TeamMember](t, db, resources.Team)

	rec := do(t, router, adminJSON(http.MethodPost, "/", `{"name":"Thandiwe","position":"Director"}`))
	var created models.TeamMember
	rec.Decode(t, &created)
	path := "/" + created.ID.Hex()

	rec = do(t, router, adminJSON(http.MethodDelete, path, ""))
	rec.AssertStatus(t, http.StatusOK)
	var resp map[string]string
	rec.Decode(t, &resp)
	if resp["message"] != "Team member deleted" || resp["id"] != created.ID.Hex() {
		t.Errorf("delete response = %v", resp)
	}

	rec = do(t, router, adminJSON(http.MethodDelete, path, ""))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter[models.GalleryItem](t, db, resources.Gallery)
	body := `{"title":"Harvest","image":"/files/harvest.jpg"}`

	t.Run("no identity", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(http.MethodPost, "/", body))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("identity failing policy", func(t *testing.T) {
		req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/", body), testutil.RegularUser())
		rec := do(t, router, req)
		rec.AssertStatus(t, http.StatusForbidden)
		rec.AssertMessage(t, "Access denied")
	})

	t.Run("wrong api key", func(t *testing.T) {
		req := testutil.NewJSONRequest(http.MethodPost, "/", body)
		req.Header.Set("Authorization", "Bearer nope")
		do(t, router, req).AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("api key", func(t *testing.T) {
		req := testutil.NewJSONRequest(http.MethodPost, "/", body)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		do(t, router, req).AssertStatus(t, http.StatusCreated)
	})

	t.Run("reads are public", func(t *testing.T) {
		do(t, router, testutil.NewRequest(http.MethodGet, "/")).AssertStatus(t, http.StatusOK)
	})
}

func TestMountAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	r := chi.NewRouter()
	MountAll(r, Deps{
		DB:     db,
		Guard:  authz.NewGuard(authz.NewPolicy(nil, nil), "", logger),
		Audit:  auditlog.New(nil, logger, auditlog.Config{}),
		Logger: logger,
	})

	for _, s := range resources.All() {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+s.Collection, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET /%s status = %d, want 200", s.Collection, rec.Code)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || items == nil {
			t.Errorf("GET /%s body = %s, want JSON array", s.Collection, rec.Body.String())
		}
	}
}
