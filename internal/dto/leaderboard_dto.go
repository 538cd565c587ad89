package dto

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Solved      int    `json:"solved"`
	Easy        int    `json:"easy"`
	Medium      int    `json:"medium"`
	Hard        int    `json:"hard"`
}

// LeaderboardResponse is the ranked list of users by points.
type LeaderboardResponse struct {
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt string             `json:"generated_at"`
	Cached      bool               `json:"cached"`
}
