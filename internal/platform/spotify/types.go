package spotify

// artistObject is a single artist entry from the Spotify Web API.
type artistObject struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Popularity   *int64            `json:"popularity"`
	Followers    *followersObject  `json:"followers"`
	ExternalURLs map[string]string `json:"external_urls"`
	Images       []imageObject     `json:"images"`
}

type followersObject struct {
	Total int64 `json:"total"`
}

type imageObject struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// artistsResponse is the response of GET /v1/artists. Unknown IDs come back
// as null entries in the array.
type artistsResponse struct {
	Artists []*artistObject `json:"artists"`
}

// searchResponse is the response of GET /v1/search?type=artist.
type searchResponse struct {
	Artists struct {
		Items []artistObject `json:"items"`
		Total int            `json:"total"`
	} `json:"artists"`
}
