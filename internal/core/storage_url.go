package core

import (
	"errors"
	"strings"
)

// ErrStatusConflict is returned by DocumentStore.TransitionStatus when
// the stored status no longer matches the expected one.
var ErrStatusConflict = errors.New("document status conflict")

// ParseObjectURL extracts bucket and key from a virtual-hosted-style
// object URL, e.g. https://my-bucket.s3.us-east-1.amazonaws.com/a/b.pdf.
func ParseObjectURL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if parts := strings.Split(host, "."); len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
