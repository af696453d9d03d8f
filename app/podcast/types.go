package podcast

import (
	"encoding/json"
	"time"
)

// Category is one entry of the ordered category list assigned by the
// upstream directory.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rating holds rating figures for a single rating source (e.g. "itunes").
type Rating struct {
	Source string  `json:"source"`
	Value  float64 `json:"value"`
	Count  int     `json:"count"`
	Bucket string  `json:"bucket,omitempty"`
}

// Demographics is the opaque audience payload returned by the upstream
// demographics endpoint. Data is passed through untouched.
type Demographics struct {
	Data             json.RawMessage `json:"data,omitempty"`
	EpisodesAnalyzed int             `json:"episodes_analyzed"`
	FetchedAt        *time.Time      `json:"fetched_at,omitempty"`
}

// PitchAngle is one pitch suggestion produced by the scoring oracle.
type PitchAngle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Snapshot is the canonical descriptive state of one podcast as reported
// by the most recent successful upstream fetch. UpstreamID is the only
// required field.
type Snapshot struct {
	UpstreamID  string `json:"upstream_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	PodcastURL  string `json:"podcast_url"`
	Publisher   string `json:"publisher"`

	Hosts      []string   `json:"hosts,omitempty"`
	Categories []Category `json:"categories,omitempty"`

	Language        string     `json:"language"`
	Region          string     `json:"region"`
	EpisodeCount    int        `json:"episode_count"`
	LatestEpisodeAt *time.Time `json:"latest_episode_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	HasGuests       bool       `json:"has_guests"`
	HasSponsors     bool       `json:"has_sponsors"`

	Ratings      []Rating `json:"ratings,omitempty"`
	AudienceSize int      `json:"audience_size"`
	ReachScore   int      `json:"reach_score"`

	Email       string   `json:"email"`
	Website     string   `json:"website"`
	SocialLinks []string `json:"social_links,omitempty"`
	RSSURL      string   `json:"rss_url"`

	Demographics *Demographics `json:"demographics,omitempty"`
}
