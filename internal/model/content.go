package model

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
	ContentTypeMixed ContentType = "mixed"
)

func (t ContentType) Valid() bool {
	switch t {
	case "", ContentTypeText, ContentTypeImage, ContentTypeVideo, ContentTypeMixed:
		return true
	}
	return false
}

// ContentItem is a post as read from the relational store.
type ContentItem struct {
	ID           string      `json:"id"`
	AuthorID     string      `json:"author_id"`
	Body         string      `json:"body"`
	ContentType  ContentType `json:"content_type,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	SaveCount    int64       `json:"save_count"`
	CommentCount int64       `json:"comment_count"`
	Embedding    []float32   `json:"-"`
	Ctime        int64       `json:"ctime"`
}

type Media struct {
	Key  string `json:"key"`
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type AuthorProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarKey   string `json:"-"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsPrivate   bool   `json:"is_private"`
}

// FeedItem is a hydrated entry of a returned feed page.
type FeedItem struct {
	ContentItem
	Author *AuthorProfile `json:"author,omitempty"`
	Media  []Media        `json:"media,omitempty"`
	Score  float64        `json:"score"`
}

// EmbeddingCache is a stored embedder response keyed by model, task type
// and a hash of the embedded text.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
