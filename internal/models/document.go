package models

import "encoding/json"

// IssueDocument is the nested aggregate of one issue and, recursively, its
// subtasks. ChildTasks is keyed by issue key.
type IssueDocument struct {
	Title       string                    `json:"title"`
	Description json.RawMessage           `json:"description"`
	Comments    []json.RawMessage         `json:"comments"`
	Attachments []string                  `json:"attachments"`
	ChildTasks  map[string]*IssueDocument `json:"childTasks"`
}

// Page is a wiki page in storage representation.
type Page struct {
	ID      string
	Title   string
	Body    string
	Version int
}

// CreatedPage is the subset of the wiki's page-creation response we use.
type CreatedPage struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Links PageLinks `json:"_links"`
}

// PageLinks holds the link fragments of a created page.
type PageLinks struct {
	Base  string `json:"base"`
	WebUI string `json:"webui"`
}

// URL joins the base and web UI fragments into the page's browser URL.
func (p CreatedPage) URL() string {
	return p.Links.Base + p.Links.WebUI
}
