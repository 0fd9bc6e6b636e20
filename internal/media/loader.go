package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// Loader turns media references into content units. It does no retrying of
// its own; fetch failures propagate to the caller.
type Loader struct {
	httpClient *http.Client
}

func NewLoader() *Loader {
	return &Loader{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Load resolves a single reference into a content unit. Inline data URIs are
// decoded locally; everything else costs one full-body network fetch. The
// remote content-type header is not trusted: kind and MIME type are derived
// from the reference alone, defaulting to JPEG for images.
func (l *Loader) Load(ctx context.Context, ref Reference) (*Unit, error) {
	s := string(ref)

	if strings.HasPrefix(s, "data:image/") {
		return decodeDataURI(s)
	}

	if mime := videoMIMEFor(s); mime != "" {
		data, err := l.fetch(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Unit{Data: data, MIMEType: mime, Kind: KindVideo}, nil
	}

	data, err := l.fetch(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Unit{Data: data, MIMEType: "image/jpeg", Kind: KindImage}, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	return data, nil
}

// videoMIMEFor returns the container MIME type when the URL path carries a
// known video extension, or "" for anything else.
func videoMIMEFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return videoMIMETypes[strings.ToLower(path.Ext(u.Path))]
}

// decodeDataURI parses data:image/...;base64,xxxx into a content unit.
func decodeDataURI(uri string) (*Unit, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, &DecodeError{Err: fmt.Errorf("missing payload separator in data URI")}
	}

	mime := strings.TrimPrefix(header, "data:")
	mime, _, _ = strings.Cut(mime, ";")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return &Unit{Data: data, MIMEType: mime, Kind: KindImage}, nil
}
