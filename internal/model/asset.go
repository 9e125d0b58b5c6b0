package model

import "time"

// Asset is a cloud asset metadata record (an EC2 instance, an S3 bucket and
// so on).  Owner is the username of the account that created it; only that
// account may read, change or delete the record.
type Asset struct {
	ID        string    `json:"id"`         // assets.id (UUID)
	Name      string    `json:"name"`       // assets.name
	Owner     string    `json:"owner"`      // assets.owner
	Type      string    `json:"type"`       // assets.type (e.g. EC2, S3)
	Region    string    `json:"region"`     // assets.region
	CreatedAt time.Time `json:"created_at"` // assets.created_at
	UpdatedAt time.Time `json:"updated_at"` // assets.updated_at
}
