package models

import (
	"time"

	"github.com/google/uuid"
)

// Camera is a site camera tied to a plot. QRCode carries a data URL encoding
// the stream URL so field staff can scan straight into the feed.
type Camera struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PlotID    uuid.UUID `gorm:"column:plot_id;type:uuid;not null;index"`
	Label     string    `gorm:"type:text;not null"`
	StreamURL string    `gorm:"column:stream_url;type:text;not null"`
	QRCode    string    `gorm:"column:qr_code;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Plot *Plot `gorm:"foreignKey:PlotID"`
}
