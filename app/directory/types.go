package directory

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

// apiPodcast mirrors the upstream directory's podcast payload. Only the
// fields the cache snapshots need are decoded; everything else is
// dropped.
type apiPodcast struct {
	PodcastID     string `json:"podcast_id"`
	PodcastName   string `json:"podcast_name"`
	Description   string `json:"podcast_description"`
	ImageURL      string `json:"podcast_image_url"`
	PodcastURL    string `json:"podcast_url"`
	PublisherName string `json:"publisher_name"`

	Hosts      []string `json:"hosts"`
	Categories []struct {
		CategoryID   string `json:"category_id"`
		CategoryName string `json:"category_name"`
	} `json:"categories"`

	Language     string     `json:"language"`
	Region       string     `json:"region"`
	EpisodeCount int        `json:"episode_count"`
	LastPostedAt *time.Time `json:"last_posted_at"`
	IsActive     bool       `json:"is_active"`
	HasGuests    bool       `json:"has_guests"`
	HasSponsors  bool       `json:"has_sponsors"`

	Ratings map[string]struct {
		Value  float64 `json:"value"`
		Count  int     `json:"count"`
		Bucket string  `json:"bucket"`
	} `json:"ratings"`

	AudienceSize int `json:"audience_size"`
	ReachScore   int `json:"reach_score"`

	Email       string   `json:"email"`
	WebsiteURL  string   `json:"website_url"`
	SocialLinks []string `json:"social_links"`
	RSSURL      string   `json:"rss_url"`
}

type apiDemographics struct {
	Demographics     json.RawMessage `json:"demographics"`
	EpisodesAnalyzed int             `json:"episodes_analyzed"`
}

type searchResponse struct {
	Podcasts []apiPodcast `json:"podcasts"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PerPage  int          `json:"per_page"`
}

// SearchResult is one page of upstream search results, already converted
// to cache snapshots.
type SearchResult struct {
	Podcasts []podcast.Snapshot
	Total    int
	Page     int
	PerPage  int
}

func (p *apiPodcast) toSnapshot() podcast.Snapshot {
	snap := podcast.Snapshot{
		UpstreamID:   p.PodcastID,
		Name:         p.PodcastName,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		PodcastURL:   p.PodcastURL,
		Publisher:    p.PublisherName,
		Hosts:        p.Hosts,
		Language:     podcast.NormalizeLanguage(p.Language),
		Region:       p.Region,
		EpisodeCount: p.EpisodeCount,
		IsActive:     p.IsActive,
		HasGuests:    p.HasGuests,
		HasSponsors:  p.HasSponsors,
		AudienceSize: p.AudienceSize,
		ReachScore:   p.ReachScore,
		Email:        p.Email,
		Website:      p.WebsiteURL,
		SocialLinks:  p.SocialLinks,
		RSSURL:       p.RSSURL,
	}

	if p.LastPostedAt != nil {
		t := p.LastPostedAt.UTC()
		snap.LatestEpisodeAt = &t
	}

	for _, c := range p.Categories {
		snap.Categories = append(snap.Categories, podcast.Category{ID: c.CategoryID, Name: c.CategoryName})
	}

	for source, r := range p.Ratings {
		snap.Ratings = append(snap.Ratings, podcast.Rating{
			Source: source,
			Value:  r.Value,
			Count:  r.Count,
			Bucket: r.Bucket,
		})
	}
	sort.Slice(snap.Ratings, func(i, j int) bool {
		return snap.Ratings[i].Source < snap.Ratings[j].Source
	})

	return snap
}
