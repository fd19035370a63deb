package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrFetch = errors.New("fetch_failed")

const (
	userAgent   = "KouboNavi/1.0 (bantex.jp)"
	maxTextSize = 30000
)

// Fetcher retrieves a page and reduces it to plain text. The regex stripping
// is a best-effort auxiliary signal, kept behind this interface so a real
// HTML parser can replace it without touching callers.
type Fetcher interface {
	PlainText(ctx context.Context, url string) (string, error)
}

type Params struct {
	fx.In

	Log *zap.Logger
}

type httpFetcher struct {
	client *http.Client
	log    *zap.Logger
}

func New(p Params) Fetcher {
	return &httpFetcher{
		client: &http.Client{Timeout: 20 * time.Second},
		log:    p.Log.Named("webfetch"),
	}
}

var (
	scriptRe     = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

func (f *httpFetcher) PlainText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrFetch, resp.StatusCode)
	}

	// cap raw reads well above the text cap so huge pages cannot exhaust memory
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	return StripHTML(string(raw)), nil
}

// StripHTML removes script/style blocks and tags, collapses whitespace and
// caps the result at 30k characters.
func StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, "")
	text = styleRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, "\n")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > maxTextSize {
		text = text[:maxTextSize]
	}
	return text
}

var Module = fx.Module("providers.webfetch",
	fx.Provide(New),
)
