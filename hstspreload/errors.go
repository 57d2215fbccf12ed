package hstspreload

import "errors"

// Input validation and dataset provisioning errors. Dataset defects found
// during a lookup surface as wrapped errors from the blob and entry packages
// and are never reported as "not preloaded".
var (
	ErrEmptyHost    = errors.New("empty host")
	ErrNonASCII     = errors.New("host is not ASCII, IDNA-encode it first")
	ErrBlobSize     = errors.New("blob size does not match jump table")
	ErrBlobChecksum = errors.New("blob fingerprint does not match jump table")
)
