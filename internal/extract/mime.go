package extract

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const defaultMimeType = "image/jpeg"

// SplitDataURL strips a "data:<mime>[;params];base64," prefix and returns the payload
// with its declared MIME type. Parameters are dropped, and a declared type outside
// image/* is reported as empty so the caller sniffs the payload instead. Plain base64
// is returned unchanged with an empty type.
func SplitDataURL(s string) (payload, mimeType string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}

	header, body, found := strings.Cut(s, ",")
	if !found {
		return s, ""
	}

	mimeType, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return body, ""
	}
	return body, mimeType
}

// DetectMimeType sniffs the decoded image header. Undecodable or non-image payloads
// report image/jpeg.
func DetectMimeType(payload string) string {
	// 512 bytes of sniffing input need at most 684 base64 characters
	head := payload
	if len(head) > 684 {
		head = head[:684]
	}
	head = head[:len(head)-len(head)%4]

	decoded, err := base64.StdEncoding.DecodeString(head)
	if err != nil || len(decoded) == 0 {
		return defaultMimeType
	}

	mimeType := http.DetectContentType(decoded)
	if !strings.HasPrefix(mimeType, "image/") {
		return defaultMimeType
	}
	return mimeType
}
