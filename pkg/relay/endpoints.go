package relay

const (
	SponsoredCallEndpoint = "/relays/v2/sponsored-call"
	TaskStatusEndpoint    = "/tasks/status/"

	modeSponsored = "sponsored"
)

type sponsoredCallRequest struct {
	ChainID       string `json:"chainId"`
	Target        string `json:"target"`
	Data          string `json:"data"`
	SponsorAPIKey string `json:"sponsorApiKey"`
}
