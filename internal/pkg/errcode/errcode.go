package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooLarge
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrTooMany
)
