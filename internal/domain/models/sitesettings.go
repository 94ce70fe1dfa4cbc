// internal/domain/models/sitesettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettings holds site-wide configuration edited by admins. There is
// exactly one document, marked with Singleton.
type SiteSettings struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Singleton bool               `bson:"singleton" json:"-"`

	// Identity
	OrganizationName string `bson:"organizationName" json:"organizationName"`
	Tagline          string `bson:"tagline" json:"tagline"`
	Description      string `bson:"description" json:"description"`
	Logo             string `bson:"logo" json:"logo"`
	Favicon          string `bson:"favicon" json:"favicon"`

	Contact     ContactInfo `bson:"contact" json:"contact"`
	SocialLinks SocialLinks `bson:"socialLinks" json:"socialLinks"`
	SEO         SEO         `bson:"seo" json:"seo"`
	Theme       Theme       `bson:"theme" json:"theme"`

	DonationURL string `bson:"donationUrl" json:"donationUrl"`
	FooterText  string `bson:"footerText" json:"footerText"`

	Features Features `bson:"features" json:"features"`

	CreatedAt *time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ContactInfo is how visitors reach the organization.
type ContactInfo struct {
	Email   string `bson:"email" json:"email"`
	Phone   string `bson:"phone" json:"phone"`
	Address string `bson:"address" json:"address"`
	MapURL  string `bson:"mapUrl" json:"mapUrl"`
}

// SocialLinks are profile URLs shown in the header and footer.
type SocialLinks struct {
	Facebook  string `bson:"facebook" json:"facebook"`
	Twitter   string `bson:"twitter" json:"twitter"`
	Instagram string `bson:"instagram" json:"instagram"`
	LinkedIn  string `bson:"linkedin" json:"linkedin"`
	YouTube   string `bson:"youtube" json:"youtube"`
}

// SEO is the default head metadata for every page.
type SEO struct {
	MetaTitle       string   `bson:"metaTitle" json:"metaTitle"`
	MetaDescription string   `bson:"metaDescription" json:"metaDescription"`
	Keywords        []string `bson:"keywords" json:"keywords"`
}

// Theme holds the brand colors exposed to the frontend as CSS variables.
type Theme struct {
	PrimaryColor   string `bson:"primaryColor" json:"primaryColor"`
	SecondaryColor string `bson:"secondaryColor" json:"secondaryColor"`
}

// Features toggles optional sections of the site.
type Features struct {
	MaintenanceMode  bool `bson:"maintenanceMode" json:"maintenanceMode"`
	ShowDonateButton bool `bson:"showDonateButton" json:"showDonateButton"`
	EnableBlog       bool `bson:"enableBlog" json:"enableBlog"`
	EnableCareers    bool `bson:"enableCareers" json:"enableCareers"`
}

// Title returns the document title for HTML pages.
func (s *SiteSettings) Title() string {
	if s.SEO.MetaTitle != "" {
		return s.SEO.MetaTitle
	}
	return s.OrganizationName
}

// Defaults used when the settings document is first created.
const (
	DefaultOrganizationName = "Mthunzi Trust"
	DefaultTagline          = "Empowering communities, transforming lives"
	DefaultDescription      = "Mthunzi Trust works alongside communities in Malawi on education, health, clean water and sustainable livelihoods."
	DefaultContactEmail     = "info@mthunzitrust.org"
	DefaultMetaDescription  = "Mthunzi Trust partners with communities to improve education, health, water access and livelihoods."
	DefaultPrimaryColor     = "#1f6f43"
	DefaultSecondaryColor   = "#f2a900"
)
