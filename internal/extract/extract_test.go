package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/abdusco/linkwatch/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	page := `<html>
<head><title>Ignored title</title><style>body { color: red }</style></head>
<body>
  <h1>Release   notes</h1>
  <script>var x = 1;</script>
  <p>Version 2.0
     is out.</p>
  <noscript>enable js</noscript>
</body>
</html>`

	text, err := Text([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Release notes Version 2.0 is out.", text)
}

func TestText_BlockBoundaries(t *testing.T) {
	tests := []struct {
		page string
		want string
	}{
		{"<p>a</p><p>b</p>", "a b"},
		{"<p>Intro</p><p>A new paragraph</p>", "Intro A new paragraph"},
		{"<ul><li>one</li><li>two</li></ul><div>three<br>four</div>", "one two three four"},
		{"<p>Ver<b>sion</b> <a href=\"#\">2</a>.0</p>", "Version 2.0"},
		{"<td>x</td><td>y</td>", "x y"},
	}

	for _, tt := range tests {
		text, err := Text([]byte("<html><body>" + tt.page + "</body></html>"))
		require.NoError(t, err)
		assert.Equal(t, tt.want, text, tt.page)
	}
}

func TestText_NoBody(t *testing.T) {
	text, err := Text([]byte("plain   words\n\nonly"))
	require.NoError(t, err)
	assert.Equal(t, "plain words only", text)
}

func TestNormalize_CapsLength(t *testing.T) {
	long := strings.Repeat("é", internal.MaxContentLength+10)

	got := Normalize(long)
	assert.Equal(t, internal.MaxContentLength, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestNormalize_Short(t *testing.T) {
	assert.Equal(t, "a b", Normalize("  a \t\n b  "))
	assert.Equal(t, "", Normalize(" \n "))
}
