package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericPrefersArticle(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
		<div class="content">Wrong root</div>
		<article><script>track()</script><p>Visible   text.</p></article>
	</body></html>`)

	assert.Equal(t, "Visible text.", NewGeneric().Parse(doc))
}

func TestGenericContentClassOrID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "class token",
			markup: `<body><p>Outside</p><div class="main story-body">Story text</div></body>`,
			want:   "Story text",
		},
		{
			name:   "id",
			markup: `<body><p>Outside</p><section id="post-content">By id</section></body>`,
			want:   "By id",
		},
		{
			name:   "role main",
			markup: `<body><p>Outside</p><div role="main">Role root</div></body>`,
			want:   "Role root",
		},
		{
			name:   "main element",
			markup: `<body><p>Outside</p><main>Main root</main></body>`,
			want:   "Main root",
		},
		{
			name:   "body fallback",
			markup: `<body><p>First</p><p>Second</p></body>`,
			want:   "First Second",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NewGeneric().Parse(mustDoc(t, tc.markup)))
		})
	}
}

func TestGenericStripsNoise(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<article>
		<p>Lead paragraph.</p>
		<div class="social-links">Tweet</div>
		<div class="share">Share</div>
		<div class="comments-section">Comments</div>
		<div class="related">Related</div>
		<div class="ad-slot">Buy now</div>
		<div class="advertisement">Sponsored</div>
		<p class="loading header-shadow">Closing paragraph.</p>
	</article>`)

	assert.Equal(t, "Lead paragraph. Closing paragraph.", NewGeneric().Parse(doc))
}

func TestGenericEmptyPage(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><nav>Only nav</nav><script>x()</script></body></html>`)
	assert.Empty(t, NewGeneric().Parse(doc))
}
