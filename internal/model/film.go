package model

// Film mirrors a film record returned by the upstream catalog API.
// Only the fields the API exposes are decoded; CommentCount is
// filled in locally from the comments table before responses are
// returned.
type Film struct {
	Title        string   `json:"title"`
	EpisodeID    int      `json:"episode_id"`
	OpeningCrawl string   `json:"opening_crawl"`
	Director     string   `json:"director"`
	Producer     string   `json:"producer"`
	ReleaseDate  string   `json:"release_date"` // YYYY-MM-DD
	Characters   []string `json:"characters"`
	URL          string   `json:"url"`
	CommentCount int      `json:"comment_count"`
}

// Character mirrors a person record returned by the upstream
// catalog API.
type Character struct {
	Name      string `json:"name"`
	Height    string `json:"height"`
	Mass      string `json:"mass"`
	Gender    string `json:"gender"`
	BirthYear string `json:"birth_year"`
	Homeworld string `json:"homeworld"`
	URL       string `json:"url"`
}
