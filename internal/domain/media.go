package domain

import "time"

// Platform identifies the social network a media item belongs to
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// SupportsAutoReply reports whether the pipeline may post automated
// replies on this platform
func (p Platform) SupportsAutoReply() bool {
	return p == PlatformInstagram
}

// Media type labels as delivered by the platform
const (
	MediaTypeImage    = "IMAGE"
	MediaTypeVideo    = "VIDEO"
	MediaTypeCarousel = "CAROUSEL_ALBUM"
)

// AnalysisStatus tracks the AI image-description enrichment of a media item
type AnalysisStatus string

const (
	AnalysisNone      AnalysisStatus = "none"
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Media represents the post a comment thread hangs off. Rows are created
// lazily on first comment and enriched with an AI image description for
// image and carousel media.
type Media struct {
	ID              string   `gorm:"type:varchar(100);primaryKey" json:"id"`
	Username        string   `gorm:"type:varchar(255)" json:"username,omitempty"`
	Caption         string   `gorm:"type:text" json:"caption,omitempty"`
	MediaType       string   `gorm:"type:varchar(50)" json:"media_type,omitempty"`
	MediaURL        string   `gorm:"type:varchar(2048)" json:"media_url,omitempty"`
	Permalink       string   `gorm:"type:varchar(2048)" json:"permalink,omitempty"`
	CommentsCount   int      `json:"comments_count"`
	LikeCount       int      `json:"like_count"`
	IsCommentEnabled bool    `gorm:"not null;default:true" json:"is_comment_enabled"`
	Platform        Platform `gorm:"type:varchar(20);not null;default:instagram" json:"platform"`

	// Processing can be disabled per media item by an operator
	IsProcessingEnabled bool `gorm:"not null;default:true" json:"is_processing_enabled"`

	MediaContext   string         `gorm:"type:text" json:"media_context,omitempty"`
	AnalysisStatus AnalysisStatus `gorm:"type:varchar(20);not null;default:none" json:"analysis_status"`
	ArchiveKey     string         `gorm:"type:varchar(512)" json:"archive_key,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Media
func (Media) TableName() string {
	return "media"
}

// HasImageContent reports whether the media carries image content the
// classifier can use a description of
func (m *Media) HasImageContent() bool {
	return m.MediaType == MediaTypeImage || m.MediaType == MediaTypeCarousel
}

// AwaitingAnalysis reports whether classification should wait for the
// image-description enrichment before invoking the classifier
func (m *Media) AwaitingAnalysis() bool {
	if !m.HasImageContent() || m.MediaURL == "" {
		return false
	}
	if m.MediaContext != "" {
		return false
	}
	return m.AnalysisStatus == AnalysisPending || m.AnalysisStatus == AnalysisNone
}
