package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/seerah/internal/types"
)

const bookHTML = `<html>
<head><title>The Life of the Prophet</title><script>var x = 1;</script></head>
<body>
<nav>Home | About</nav>
<section data-page="7"><h2>The Hijrah</h2><p>The emigration to Yathrib took place in 622.</p></section>
<section data-page="8"><p>The city became known as Medina.</p><p>A mosque was built.</p></section>
</body>
</html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Text(t *testing.T) {
	path := writeFile(t, "book.txt", "First   page\ttext.\r\n\n\n\nSecond paragraph.\fSecond page.\f   \fFourth page.")

	var seen []int
	l := NewWithConfig(LoaderConfig{OnProgress: func(page int) { seen = append(seen, page) }})

	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 4)

	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "First page text.\n\nSecond paragraph.", doc.Pages[0].Text)
	assert.Equal(t, 2, doc.Pages[1].Number)
	assert.Equal(t, "Second page.", doc.Pages[1].Text)
	assert.Equal(t, "", doc.Pages[2].Text)
	assert.Equal(t, 4, doc.Pages[3].Number)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestLoad_PDF(t *testing.T) {
	doc, err := New().Load(context.Background(), "testdata/sample.pdf")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)

	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Contains(t, doc.Pages[0].Text, "A Simple PDF File")
	assert.Equal(t, 2, doc.Pages[1].Number)
	assert.Contains(t, doc.Pages[1].Text, "continued from page 1")
}

func TestLoad_HTMLFile(t *testing.T) {
	path := writeFile(t, "book.html", bookHTML)

	doc, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)

	assert.Equal(t, "The Life of the Prophet", doc.Title)
	assert.Equal(t, 7, doc.Pages[0].Number)
	assert.Equal(t, "The Hijrah\n\nThe emigration to Yathrib took place in 622.", doc.Pages[0].Text)
	assert.Equal(t, 8, doc.Pages[1].Number)
	assert.NotContains(t, doc.Pages[1].Text, "Home")
}

func TestLoad_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/book":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><main><p>Khadijah was a merchant of Mecca.</p></main></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	doc, err := New().Load(context.Background(), server.URL+"/book")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Equal(t, "Khadijah was a merchant of Mecca.", doc.Pages[0].Text)

	_, err = New().Load(context.Background(), server.URL+"/missing")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		empty  bool
	}{
		{name: "missing file", source: filepath.Join(t.TempDir(), "absent.pdf")},
		{name: "unsupported format", source: writeFile(t, "book.epub", "data")},
		{name: "blank text", source: writeFile(t, "blank.txt", " \n\f\t\n"), empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Load(context.Background(), tt.source)
			require.Error(t, err)
			assert.Equal(t, tt.empty, errors.Is(err, types.ErrEmptyDocument))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a  b  ", "a b"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"a\xffb", "ab"},
		{"line one\r\nline two", "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestExists(t *testing.T) {
	assert.True(t, Exists("https://example.com/book"))
	assert.True(t, Exists(writeFile(t, "a.txt", "x")))
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nope.pdf")))
}
