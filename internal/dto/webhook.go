package dto

// WebhookPayload is the envelope the platform POSTs to the webhook
// endpoint. The field layout must stay exactly as the platform sends it.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the changes delivered for one account
type WebhookEntry struct {
	ID      string          `json:"id"`
	Time    int64           `json:"time"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange is one field-level notification inside an entry
type WebhookChange struct {
	Field string       `json:"field"`
	Value CommentValue `json:"value"`
}

// CommentValue is the comment payload of a "comments" change
type CommentValue struct {
	ID       string       `json:"id"`
	From     CommentFrom  `json:"from"`
	Media    CommentMedia `json:"media"`
	Text     string       `json:"text"`
	ParentID string       `json:"parent_id,omitempty"`
}

// CommentFrom identifies the comment author
type CommentFrom struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CommentMedia identifies the post the comment was left on
type CommentMedia struct {
	ID string `json:"id"`
}
