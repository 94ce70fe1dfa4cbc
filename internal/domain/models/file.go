package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media is an uploaded image or document. The object itself lives in the
// storage backend; this record is what the media library lists.
type Media struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`      // original filename
	NameCI      string             `bson:"name_ci" json:"-"`      // folded for sorting
	StoragePath string             `bson:"storage_path" json:"-"` // key in the storage backend
	URL         string             `bson:"url" json:"url"`        // public URL at upload time
	Size        int64              `bson:"size" json:"size"`
	ContentType string             `bson:"content_type" json:"contentType"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	CreatedByID primitive.ObjectID `bson:"created_by_id,omitempty" json:"-"`
}

// IsImage reports whether the media is an image.
func (m *Media) IsImage() bool {
	return len(m.ContentType) > 6 && m.ContentType[:6] == "image/"
}
