package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStripHTMLRemovesScriptAndStyle(t *testing.T) {
	html := `<html><head><style>body{color:red}</style><script>alert(1)</script></head>` +
		`<body><h1>入札情報</h1><p>公募  案件</p></body></html>`
	got := StripHTML(html)
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color:red")
	assert.Contains(t, got, "入札情報")
	assert.Contains(t, got, "公募 案件")
}

func TestStripHTMLCapsLength(t *testing.T) {
	huge := strings.Repeat("a", 100000)
	assert.Len(t, StripHTML(huge), 30000)
}

func TestPlainTextFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "KouboNavi/1.0 (bantex.jp)", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>hello <b>world</b></body></html>"))
	}))
	defer srv.Close()

	f := New(Params{Log: zap.NewNop()})
	got, err := f.PlainText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestPlainTextNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Params{Log: zap.NewNop()})
	_, err := f.PlainText(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
}
