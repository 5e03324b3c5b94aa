package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsiaOneMissingContainer(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><article><p>Not in the container.</p></article></body></html>`)
	assert.Empty(t, NewAsiaOne().Parse(doc))
}

func TestAsiaOneFiltersBoilerplate(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
		<header>Site header</header>
		<div class="article_content">
			<p>SINGAPORE - The first paragraph.</p>
			<p>PHOTO: The Straits Times</p>
			<div class="dfp-ad-unit">Advertisement copy</div>
			<p>PUBLISHED ON Jan 01, 2024</p>
			<p>[[nid:12345]]</p>
			<p>Second paragraph
			continues here.</p>
			<p>Share this article on social</p>
			<div class="video-embed-wrapper">embed code</div>
			<p>This website is best viewed in Chrome</p>
		</div>
	</body></html>`)

	got := NewAsiaOne().Parse(doc)
	assert.Equal(t, "SINGAPORE - The first paragraph. Second paragraph continues here.", got)
}
