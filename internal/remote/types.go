package remote

import "github.com/matheuskafuri/briefly/internal/article"

type ArticleQuery struct {
	Title     string
	Tags      []string
	Author    string
	StartDate string
	EndDate   string
}

type ArticleList struct {
	NumFound int               `json:"num_found"`
	Articles []article.Article `json:"articles"`
}

type GenerateRequest struct {
	Q        string `json:"q,omitempty"`
	SearchIn string `json:"searchIn,omitempty"`
}

type GenerateReport struct {
	Success           bool              `json:"success"`
	CreatedAt         string            `json:"created_at"`
	NumInserted       int               `json:"num_inserted"`
	NumUpdated        int               `json:"num_updated"`
	NumProcessed      int               `json:"num_processed"`
	NumFailed         int               `json:"num_failed"`
	ArticlesProcessed []article.Article `json:"articles_processed"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	UserID      string       `json:"user_id,omitempty"`
	UserRole    string       `json:"user_role,omitempty"`
	Likes       []article.ID `json:"likes,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

type likesResponse struct {
	Success bool         `json:"success"`
	Likes   []article.ID `json:"likes"`
	Error   string       `json:"error,omitempty"`
}

type likeRequest struct {
	UserID    string `json:"user_id"`
	ArticleID string `json:"article_id"`
}

type likeResponse struct {
	Success           bool   `json:"success"`
	UserModifiedCount int    `json:"user_modified_count"`
	Liked             *bool  `json:"liked,omitempty"`
	Error             string `json:"error,omitempty"`
}

// LikeState is the server's verdict for one article after a toggle.
type LikeState struct {
	ArticleID article.ID
	Liked     bool
}

// Personalized is the API's personalized feed for a user.
type Personalized struct {
	Articles      []article.Article `json:"articles"`
	PreferredTags []string          `json:"preferred_tags,omitempty"`
}

type ArticleUpdate struct {
	Summary   *string  `json:"summary,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
}

type mutationResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Msg     string           `json:"msg,omitempty"`
	Error   string           `json:"error,omitempty"`
	Article *article.Article `json:"article,omitempty"`
}
