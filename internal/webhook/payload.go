// internal/webhook/payload.go
package webhook

// PushEvent is the subset of Bitbucket's push-event payload this service
// consumes.
// https://support.atlassian.com/bitbucket-cloud/docs/event-payloads/#Push
type PushEvent struct {
	Repository PayloadRepository `json:"repository"`
	Push       PayloadPush       `json:"push"`
}

type PayloadRepository struct {
	UUID     string `json:"uuid"`
	FullName string `json:"full_name"`
}

type PayloadPush struct {
	Changes []PayloadChange `json:"changes"`
}

// PayloadChange is a single ref update within a push, bundling the commits it
// introduced.
type PayloadChange struct {
	Commits []PayloadCommit `json:"commits"`
}

type PayloadCommit struct {
	Hash    string        `json:"hash"`
	Message string        `json:"message"`
	Date    string        `json:"date"`
	Author  PayloadAuthor `json:"author"`
}

// PayloadAuthor carries the raw "Name <email>" string; Bitbucket does not
// guarantee it is a valid address.
type PayloadAuthor struct {
	Raw string `json:"raw"`
}
