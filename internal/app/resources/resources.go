// internal/app/resources/resources.go
package resources

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/slug"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ColorPattern matches CSS hex colors (#rgb through #rrggbbaa).
var ColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

// Reusable field declarations.
var (
	slugField     = schema.Field{Name: schema.SlugField, Kind: schema.String, Pattern: slug.Pattern, MaxLen: 200}
	featuredField = schema.Field{Name: "featured", Kind: schema.Bool, Default: false}
	orderField    = schema.Field{Name: "order", Kind: schema.Int, Default: models.DefaultOrder}
	activeField   = schema.Field{Name: "active", Kind: schema.Bool, Default: true}
)

func text(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String}
}

func required(name string, maxLen int) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Required: true, MaxLen: maxLen}
}

func list(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.Strings, Default: []string{}}
}

func enum(name string, values []string, def string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Enum: values, Default: def}
}

func link(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Rules: []validation.Rule{is.URL}}
}

func email(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Rules: []validation.Rule{is.EmailFormat}}
}

func flag(name string, param string) schema.Filter {
	return schema.Filter{Param: param, Field: name, Kind: schema.Bool}
}

func match(name string) schema.Filter {
	return schema.Filter{Param: name, Field: name, Kind: schema.String}
}

var (
	// Achievements are addressable by slug.
	Achievements = &schema.Schema{
		Name:       "Achievement",
		Collection: "achievements",
		SlugSource: "title",
		Fields: []schema.Field{
			required("title", 200),
			slugField,
			text("description"),
			text("category"),
			{Name: "year", Kind: schema.Int, Min: schema.Bound(1900), Max: schema.Bound(2100)},
			text("location"),
			text("impact"),
			{Name: "beneficiaries", Kind: schema.Int, Min: schema.Bound(0)},
			list("images"),
			featuredField,
			orderField,
		},
		Filters: []schema.Filter{
			match("category"),
			flag("featured", "featured"),
			{Param: "year", Field: "year", Kind: schema.Int},
		},
		Sort:       bson.D{{Key: "year", Value: -1}, {Key: "order", Value: 1}, {Key: "createdAt", Value: -1}},
		Timestamps: true,
	}

	Projects = &schema.Schema{
		Name:       "Project",
		Collection: "projects",
		SlugSource: "title",
		Fields: []schema.Field{
			required("title", 200),
			slugField,
			text("summary"),
			{Name: "description", Kind: schema.HTML},
			enum("category", models.ProjectCategories, "community"),
			enum("status", models.ProjectStatuses, models.ProjectStatusOngoing),
			text("location"),
			{Name: "startDate", Kind: schema.Time},
			{Name: "endDate", Kind: schema.Time},
			{Name: "beneficiaries", Kind: schema.Int, Min: schema.Bound(0)},
			{Name: "budget", Kind: schema.Int, Min: schema.Bound(0)},
			list("partners"),
			list("images"),
			featuredField,
			orderField,
		},
		Filters: []schema.Filter{
			match("status"),
			match("category"),
			flag("featured", "featured"),
		},
		Sort:       bson.D{{Key: "featured", Value: -1}, {Key: "order", Value: 1}, {Key: "createdAt", Value: -1}},
		Timestamps: true,
	}

	// Voices are addressed by id only. The public list shows active voices
	// unless ?active=false is given.
	Voices = &schema.Schema{
		Name:       "Voice",
		Collection: "voices",
		Fields: []schema.Field{
			required("name", 120),
			text("role"),
			text("organization"),
			{Name: "quote", Kind: schema.String, Required: true, MaxLen: 2000},
			text("image"),
			text("location"),
			activeField,
			featuredField,
			orderField,
		},
		Filters: []schema.Filter{
			{Param: "active", Field: "active", Kind: schema.Bool, Default: "true"},
			flag("featured", "featured"),
		},
		Sort:       bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}},
		Timestamps: true,
	}

	Blogs = &schema.Schema{
		Name:       "Blog",
		Collection: "blogs",
		SlugSource: "title",
		Fields: []schema.Field{
			required("title", 200),
			slugField,
			{Name: "excerpt", Kind: schema.String, MaxLen: 500},
			{Name: "content", Kind: schema.HTML, Required: true},
			text("author"),
			text("coverImage"),
			text("category"),
			list("tags"),
			enum("status", []string{models.BlogStatusDraft, models.BlogStatusPublished}, models.BlogStatusPublished),
			{Name: "publishedAt", Kind: schema.Time, Default: func() any { return schema.Now() }},
			featuredField,
		},
		Filters: []schema.Filter{
			match("status"),
			match("category"),
			{Param: "tag", Field: "tags", Kind: schema.String},
			flag("featured", "featured"),
		},
		Sort:       bson.D{{Key: "publishedAt", Value: -1}, {Key: "createdAt", Value: -1}},
		Timestamps: true,
	}

	Programs = &schema.Schema{
		Name:       "Program",
		Collection: "programs",
		SlugSource: "title",
		Fields: []schema.Field{
			required("title", 200),
			slugField,
			text("summary"),
			{Name: "description", Kind: schema.HTML},
			text("icon"),
			text("image"),
			text("category"),
			list("highlights"),
			activeField,
			featuredField,
			orderField,
		},
		Filters: []schema.Filter{
			match("category"),
			flag("active", "active"),
			flag("featured", "featured"),
		},
		Sort:       bson.D{{Key: "order", Value: 1}, {Key: "title", Value: 1}},
		Timestamps: true,
	}

	Jobs = &schema.Schema{
		Name:       "Job",
		Collection: "jobs",
		SlugSource: "title",
		Fields: []schema.Field{
			required("title", 200),
			slugField,
			text("department"),
			text("location"),
			enum("type", models.JobTypes, "full-time"),
			{Name: "description", Kind: schema.HTML, Required: true},
			list("requirements"),
			list("responsibilities"),
			{Name: "deadline", Kind: schema.Time},
			link("applyUrl"),
			email("applyEmail"),
			enum("status", []string{"open", "closed"}, "open"),
		},
		Filters: []schema.Filter{
			match("status"),
			match("type"),
			match("department"),
		},
		Sort:       bson.D{{Key: "createdAt", Value: -1}},
		Timestamps: true,
	}

	Gallery = &schema.Schema{
		Name:       "Gallery item",
		Collection: "gallery",
		Fields: []schema.Field{
			required("title", 200),
			required("image", 0),
			text("caption"),
			text("category"),
			text("album"),
			featuredField,
			orderField,
		},
		Filters: []schema.Filter{
			match("category"),
			flag("featured", "featured"),
		},
		Sort:       bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}},
		Timestamps: true,
	}

	Partners = &schema.Schema{
		Name:       "Partner",
		Collection: "partners",
		Fields: []schema.Field{
			required("name", 200),
			text("logo"),
			link("website"),
			text("description"),
			enum("type", models.PartnerTypes, "implementing"),
			featuredField,
			orderField,
		},
		Filters: []schema.Filter{
			match("type"),
			flag("featured", "featured"),
		},
		Sort:       bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}},
		Timestamps: true,
	}

	Team = &schema.Schema{
		Name:       "Team member",
		Collection: "team",
		Fields: []schema.Field{
			required("name", 120),
			required("position", 120),
			{Name: "bio", Kind: schema.HTML},
			text("image"),
			email("email"),
			link("linkedin"),
			enum("group", models.TeamGroups, "staff"),
			orderField,
		},
		Filters: []schema.Filter{
			match("group"),
		},
		Sort:       bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}},
		Timestamps: true,
	}
)

// Settings describes the singleton site settings document. Every field has a
// default so the document is complete the first time it is read.
var Settings = &schema.Schema{
	Name:       "Settings",
	Collection: "site_settings",
	Fields: []schema.Field{
		{Name: "organizationName", Kind: schema.String, Required: true, MaxLen: 200, Default: models.DefaultOrganizationName},
		{Name: "tagline", Kind: schema.String, MaxLen: 300, Default: models.DefaultTagline},
		{Name: "description", Kind: schema.String, Default: models.DefaultDescription},
		{Name: "logo", Kind: schema.String, Default: ""},
		{Name: "favicon", Kind: schema.String, Default: ""},
		{Name: "contact", Kind: schema.Object, Fields: []schema.Field{
			withDefault(email("email"), models.DefaultContactEmail),
			withDefault(text("phone"), ""),
			withDefault(text("address"), ""),
			withDefault(link("mapUrl"), ""),
		}},
		{Name: "socialLinks", Kind: schema.Object, Fields: []schema.Field{
			withDefault(link("facebook"), ""),
			withDefault(link("twitter"), ""),
			withDefault(link("instagram"), ""),
			withDefault(link("linkedin"), ""),
			withDefault(link("youtube"), ""),
		}},
		{Name: "seo", Kind: schema.Object, Fields: []schema.Field{
			{Name: "metaTitle", Kind: schema.String, MaxLen: 120, Default: models.DefaultOrganizationName},
			{Name: "metaDescription", Kind: schema.String, MaxLen: 320, Default: models.DefaultMetaDescription},
			list("keywords"),
		}},
		{Name: "theme", Kind: schema.Object, Fields: []schema.Field{
			{Name: "primaryColor", Kind: schema.String, Pattern: ColorPattern, Default: models.DefaultPrimaryColor},
			{Name: "secondaryColor", Kind: schema.String, Pattern: ColorPattern, Default: models.DefaultSecondaryColor},
		}},
		withDefault(link("donationUrl"), ""),
		{Name: "footerText", Kind: schema.String, Default: ""},
		{Name: "features", Kind: schema.Object, Fields: []schema.Field{
			{Name: "maintenanceMode", Kind: schema.Bool, Default: false},
			{Name: "showDonateButton", Kind: schema.Bool, Default: true},
			{Name: "enableBlog", Kind: schema.Bool, Default: true},
			{Name: "enableCareers", Kind: schema.Bool, Default: true},
		}},
	},
	Timestamps: true,
}

func withDefault(f schema.Field, def any) schema.Field {
	f.Default = def
	return f
}

// All returns the content collections in menu order. Settings is not
// included; it is served by its own handler.
func All() []*schema.Schema {
	return []*schema.Schema{
		Achievements,
		Projects,
		Voices,
		Blogs,
		Programs,
		Jobs,
		Gallery,
		Partners,
		Team,
	}
}
