package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content documents use camelCase keys in both BSON and JSON; the frontend
// reads them as stored. Optional dates are pointers so an unset date is
// absent rather than the zero time, and optional counts are pointers so an
// explicit 0 is kept apart from a count that was never given.

// Achievement is a milestone the organization has reached.
type Achievement struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description,omitempty" json:"description"`
	Category      string             `bson:"category,omitempty" json:"category"`
	Year          *int               `bson:"year,omitempty" json:"year"`
	Location      string             `bson:"location,omitempty" json:"location"`
	Impact        string             `bson:"impact,omitempty" json:"impact"`
	Beneficiaries *int               `bson:"beneficiaries,omitempty" json:"beneficiaries"`
	Images        []string           `bson:"images" json:"images"`
	Featured      bool               `bson:"featured" json:"featured"`
	Order         int                `bson:"order" json:"order"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Project is a program of work in the field.
type Project struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Slug          string             `bson:"slug" json:"slug"`
	Summary       string             `bson:"summary,omitempty" json:"summary"`
	Description   string             `bson:"description,omitempty" json:"description"`
	Category      string             `bson:"category" json:"category"`
	Status        string             `bson:"status" json:"status"`
	Location      string             `bson:"location,omitempty" json:"location"`
	StartDate     *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate       *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Beneficiaries *int               `bson:"beneficiaries,omitempty" json:"beneficiaries"`
	Budget        *int               `bson:"budget,omitempty" json:"budget"`
	Partners      []string           `bson:"partners" json:"partners"`
	Images        []string           `bson:"images" json:"images"`
	Featured      bool               `bson:"featured" json:"featured"`
	Order         int                `bson:"order" json:"order"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Project categories and statuses.
const (
	ProjectStatusPlanned   = "planned"
	ProjectStatusOngoing   = "ongoing"
	ProjectStatusCompleted = "completed"
)

// ProjectCategories lists the accepted project categories.
var ProjectCategories = []string{"education", "health", "environment", "livelihoods", "water-sanitation", "community"}

// ProjectStatuses lists the accepted project statuses.
var ProjectStatuses = []string{ProjectStatusPlanned, ProjectStatusOngoing, ProjectStatusCompleted}

// Voice is a testimonial from a beneficiary, partner or volunteer.
type Voice struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Role         string             `bson:"role,omitempty" json:"role"`
	Organization string             `bson:"organization,omitempty" json:"organization"`
	Quote        string             `bson:"quote" json:"quote"`
	Image        string             `bson:"image,omitempty" json:"image"`
	Location     string             `bson:"location,omitempty" json:"location"`
	Active       bool               `bson:"active" json:"active"`
	Featured     bool               `bson:"featured" json:"featured"`
	Order        int                `bson:"order" json:"order"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Blog is a news post.
type Blog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Excerpt     string             `bson:"excerpt,omitempty" json:"excerpt"`
	Content     string             `bson:"content" json:"content"`
	Author      string             `bson:"author,omitempty" json:"author"`
	CoverImage  string             `bson:"coverImage,omitempty" json:"coverImage"`
	Category    string             `bson:"category,omitempty" json:"category"`
	Tags        []string           `bson:"tags" json:"tags"`
	Status      string             `bson:"status" json:"status"`
	PublishedAt *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Featured    bool               `bson:"featured" json:"featured"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Blog statuses.
const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
)

// Program is a long-running area of work, shown on the programs page.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Summary     string             `bson:"summary,omitempty" json:"summary"`
	Description string             `bson:"description,omitempty" json:"description"`
	Icon        string             `bson:"icon,omitempty" json:"icon"`
	Image       string             `bson:"image,omitempty" json:"image"`
	Category    string             `bson:"category,omitempty" json:"category"`
	Highlights  []string           `bson:"highlights" json:"highlights"`
	Active      bool               `bson:"active" json:"active"`
	Featured    bool               `bson:"featured" json:"featured"`
	Order       int                `bson:"order" json:"order"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Job is a vacancy on the careers page.
type Job struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string             `bson:"title" json:"title"`
	Slug             string             `bson:"slug" json:"slug"`
	Department       string             `bson:"department,omitempty" json:"department"`
	Location         string             `bson:"location,omitempty" json:"location"`
	Type             string             `bson:"type" json:"type"`
	Description      string             `bson:"description" json:"description"`
	Requirements     []string           `bson:"requirements" json:"requirements"`
	Responsibilities []string           `bson:"responsibilities" json:"responsibilities"`
	Deadline         *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	ApplyURL         string             `bson:"applyUrl,omitempty" json:"applyUrl"`
	ApplyEmail       string             `bson:"applyEmail,omitempty" json:"applyEmail"`
	Status           string             `bson:"status" json:"status"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// JobTypes lists the accepted employment types.
var JobTypes = []string{"full-time", "part-time", "contract", "internship", "volunteer"}

// GalleryItem is one photo in the gallery.
type GalleryItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Image     string             `bson:"image" json:"image"`
	Caption   string             `bson:"caption,omitempty" json:"caption"`
	Category  string             `bson:"category,omitempty" json:"category"`
	Album     string             `bson:"album,omitempty" json:"album"`
	Featured  bool               `bson:"featured" json:"featured"`
	Order     int                `bson:"order" json:"order"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Partner is a funder or collaborating organization.
type Partner struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Logo        string             `bson:"logo,omitempty" json:"logo"`
	Website     string             `bson:"website,omitempty" json:"website"`
	Description string             `bson:"description,omitempty" json:"description"`
	Type        string             `bson:"type" json:"type"`
	Featured    bool               `bson:"featured" json:"featured"`
	Order       int                `bson:"order" json:"order"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PartnerTypes lists the accepted partner types.
var PartnerTypes = []string{"funding", "implementing", "government", "corporate", "community"}

// TeamMember is a board member, staff member or volunteer.
type TeamMember struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Position  string             `bson:"position" json:"position"`
	Bio       string             `bson:"bio,omitempty" json:"bio"`
	Image     string             `bson:"image,omitempty" json:"image"`
	Email     string             `bson:"email,omitempty" json:"email"`
	LinkedIn  string             `bson:"linkedin,omitempty" json:"linkedin"`
	Group     string             `bson:"group" json:"group"`
	Order     int                `bson:"order" json:"order"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TeamGroups lists the accepted team groups.
var TeamGroups = []string{"board", "staff", "volunteer"}

// DefaultOrder places documents without an explicit order after ordered ones.
const DefaultOrder = 999
