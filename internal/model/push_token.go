package model

type PushToken struct {
	ID        int64  `db:"id" json:"id"`
	Platform  string `db:"platform" json:"platform"`
	PushToken string `db:"push_token" json:"push_token"`
	Sandbox   bool   `db:"sandbox" json:"sandbox"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// RegisterPushRequest is the body of POST /api/v1/push/register.
type RegisterPushRequest struct {
	Platform  string `json:"platform"`
	PushToken string `json:"push_token"`
	Sandbox   *bool  `json:"sandbox,omitempty"`
}
