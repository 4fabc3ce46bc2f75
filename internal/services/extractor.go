package services

import (
	"cmp"
	"maps"
	"regexp"
	"slices"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

// attachmentTag matches a link or image tag whose target is an issue
// tracker attachment content URL. Group 2 is the attachment id.
var attachmentTag = regexp.MustCompile(`<(a|img)\b[^>]*?(?:href|src)="https://api\.atlassian\.com/ex/jira/[^/]+/rest/api/3/attachment/content/([^"]+)"[^>]*?(?:>(.*?)</a>|/?>)`)

// ExtractAttachmentRefs returns every attachment reference in the markup,
// in document order. The same id may appear more than once.
func ExtractAttachmentRefs(markup string) []models.AttachmentRef {
	matches := attachmentTag.FindAllStringSubmatch(markup, -1)
	refs := make([]models.AttachmentRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, models.AttachmentRef{ID: m[2], AnchorMarkup: m[0]})
	}
	return refs
}

// AttachmentAnchors maps each referenced attachment id to its anchor markup.
// When an id is referenced more than once the last occurrence wins, so only
// that occurrence is later replaced by an image macro.
func AttachmentAnchors(markup string) map[string]string {
	anchors := make(map[string]string)
	for _, ref := range ExtractAttachmentRefs(markup) {
		anchors[ref.ID] = ref.AnchorMarkup
	}
	return anchors
}

// BuildJobs returns one upload job per attachment, in ascending id order,
// followed by the single finalize job.
func BuildJobs(anchors map[string]string, pageID, pageTitle, renderedBody string) []models.UploadJob {
	ids := sortedIDs(anchors)
	jobs := make([]models.UploadJob, 0, len(ids)+1)
	for _, id := range ids {
		jobs = append(jobs, models.NewUploadJob(id, anchors[id], pageID))
	}
	return append(jobs, models.NewFinalizeJob(maps.Clone(anchors), pageID, pageTitle, renderedBody))
}

// sortedIDs orders numeric attachment ids numerically, ahead of any
// non-numeric ids, which sort lexically.
func sortedIDs(anchors map[string]string) []string {
	return slices.SortedFunc(maps.Keys(anchors), compareIDs)
}

func compareIDs(a, b string) int {
	da, db := isDigits(a), isDigits(b)
	switch {
	case da && db:
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
	case da:
		return -1
	case db:
		return 1
	}
	return cmp.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
