package pubsub

// Channel names shared with the game server and the website.
const (
	ChannelAnnounce       = "refx:announce"
	ChannelRestrict       = "refx:restrict"
	ChannelNotify         = "refx:notify"
	ChannelRefreshStats   = "refx:refresh_stats"
	ChannelScoreSubmitted = "refx:score_submitted"
	ChannelRefreshMap     = "forlorn:refresh_map"
)
