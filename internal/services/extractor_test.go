package services

import (
	"testing"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contentURL = "https://api.atlassian.com/ex/jira/cloud-1/rest/api/3/attachment/content/"

func TestAttachmentAnchors(t *testing.T) {
	imgTag := `<img src="` + contentURL + `123">`
	tests := []struct {
		name   string
		markup string
		want   map[string]string
	}{
		{
			name:   "no matches",
			markup: `<p>plain text <a href="https://example.com/x">link</a></p>`,
			want:   map[string]string{},
		},
		{
			name:   "image tag",
			markup: `<p>` + imgTag + `</p>`,
			want:   map[string]string{"123": imgTag},
		},
		{
			name:   "self-closing image with alt",
			markup: `<p><img src="` + contentURL + `77" alt="shot" /></p>`,
			want:   map[string]string{"77": `<img src="` + contentURL + `77" alt="shot" />`},
		},
		{
			name:   "anchor tag with text",
			markup: `<p>see <a href="` + contentURL + `9">report.pdf</a> now</p>`,
			want:   map[string]string{"9": `<a href="` + contentURL + `9">report.pdf</a>`},
		},
		{
			name:   "other site attachment paths are ignored",
			markup: `<img src="https://example.com/rest/api/3/attachment/content/5" />`,
			want:   map[string]string{},
		},
		{
			name: "last match wins",
			markup: `<a href="` + contentURL + `1">first</a>` +
				`<a href="` + contentURL + `1">second</a>`,
			want: map[string]string{"1": `<a href="` + contentURL + `1">second</a>`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttachmentAnchors(tt.markup))
		})
	}
}

func TestExtractAttachmentRefs_KeepsEveryOccurrence(t *testing.T) {
	markup := `<img src="` + contentURL + `2" /><img src="` + contentURL + `1" /><img src="` + contentURL + `2" />`

	refs := ExtractAttachmentRefs(markup)
	require.Len(t, refs, 3)
	assert.Equal(t, []string{"2", "1", "2"}, []string{refs[0].ID, refs[1].ID, refs[2].ID})
}

func TestBuildJobs_NoAttachments(t *testing.T) {
	jobs := BuildJobs(AttachmentAnchors("<p>nothing</p>"), "10", "Title (4)", "<p>nothing</p>")

	require.Len(t, jobs, 1)
	fin := jobs[0]
	assert.True(t, fin.IsFinalize())
	assert.True(t, fin.Verification)
	assert.Empty(t, fin.AttachmentID)
	assert.Equal(t, "10", fin.PageID)
	assert.Equal(t, "Title (4)", fin.PageTitle)
	assert.Equal(t, "<p>nothing</p>", fin.HTMLString)
}

func TestBuildJobs_OneUploadPerDistinctID(t *testing.T) {
	markup := `<img src="` + contentURL + `10" />` +
		`<a href="` + contentURL + `9">a</a>` +
		`<a href="` + contentURL + `10">again</a>`
	anchors := AttachmentAnchors(markup)

	jobs := BuildJobs(anchors, "p1", "T", markup)

	require.Len(t, jobs, 3)
	assert.Equal(t, models.NewUploadJob("9", `<a href="`+contentURL+`9">a</a>`, "p1"), jobs[0])
	assert.Equal(t, models.NewUploadJob("10", `<a href="`+contentURL+`10">again</a>`, "p1"), jobs[1])
	assert.True(t, jobs[2].IsFinalize())
	assert.Equal(t, anchors, jobs[2].AnchorMap)
	for _, j := range jobs[:2] {
		assert.False(t, j.IsFinalize())
	}
}

func TestSortedIDs(t *testing.T) {
	anchors := map[string]string{"100": "", "9": "", "abc": "", "20": "", "ab": ""}
	assert.Equal(t, []string{"9", "20", "100", "ab", "abc"}, sortedIDs(anchors))
}
