package models

// These structs define the JSON payloads for HTTP requests and responses
// between callers and the bridge Cloud Functions.

// CreatePageRequest is the input for the create-page function.
type CreatePageRequest struct {
	PageBody           string `json:"pageBody"`
	PageTitle          string `json:"pageTitle"`
	ConfluenceSpaceKey string `json:"confluenceSpaceKey"`
}

// CreatePageResponse is the output of the create-page function.
type CreatePageResponse struct {
	Status  string `json:"status"`
	PageID  string `json:"pageId"`
	PageURL string `json:"pageUrl"`
	BatchID string `json:"batchId"`
}

// LinkPageRequest is the input for the link-page function.
type LinkPageRequest struct {
	ConfluenceLink          string `json:"confluenceLink"`
	IssueID                 string `json:"issueId"`
	ConfluenceApplicationID string `json:"confluenceApplicationId"`
}

// LinkPageResponse is the output of the link-page function. RemoteLink is
// the issue tracker's response to the remote link creation, passed through.
type LinkPageResponse struct {
	Status     string         `json:"status"`
	PageID     string         `json:"pageId"`
	RemoteLink map[string]any `json:"remoteLink,omitempty"`
}

// ApplicationIDResponse is returned when the stored wiki application id is read.
type ApplicationIDResponse struct {
	ConfluenceApplicationID string `json:"confluenceApplicationId"`
}

// IssueDetailsRequest is the input for the issue-details function.
type IssueDetailsRequest struct {
	IssueID string `json:"issueId"`
}
