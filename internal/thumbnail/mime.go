package thumbnail

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// DetectMIME sniffs the content type of data. When sniffing gives up
// (application/octet-stream) the declared type is used instead, if any.
// Parameters such as charset are dropped.
func DetectMIME(data []byte, declared string) string {
	detected := baseType(mimetype.Detect(data).String())
	if detected == "" || detected == octetStream {
		if d := baseType(declared); d != "" {
			return d
		}
		return octetStream
	}
	return detected
}

func baseType(s string) string {
	t, _, _ := strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(t))
}
