package media

import (
	"fmt"
)

// Kind tags a content unit as an image or a video.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Reference is a single piece of user-supplied media: an inline base64 data
// URI, a remote video URL, or a remote image URL. The loader decides which by
// inspecting the reference itself.
type Reference string

// Unit is the normalized in-memory payload handed to the identification
// client: raw bytes plus the MIME type and kind the model should see. A unit
// belongs to the single identification call that consumed it.
type Unit struct {
	Data     []byte
	MIMEType string
	Kind     Kind
}

// FetchError reports a remote fetch that failed or came back with a
// non-success status.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a malformed inline data URI.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decoding inline media: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
