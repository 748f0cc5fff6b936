package mixcloud

// userResult is a Mixcloud user from the profile or search endpoints.
type userResult struct {
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	FollowerCount  *int64   `json:"follower_count"`
	CloudcastCount int64    `json:"cloudcast_count"`
	Pictures       pictures `json:"pictures"`
}

type pictures struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// searchResponse is the paginated response of GET /search/?type=user.
type searchResponse struct {
	Data []userResult `json:"data"`
}
