package relationship

import "errors"

var (
	ErrSelfAction         = errors.New("cannot perform this action on yourself")
	ErrMissingUser        = errors.New("user id is required")
	ErrUserBlocked        = errors.New("interaction not allowed - user is blocked")
	ErrInvalidInteraction = errors.New("invalid interaction type")

	ErrReportNotFound      = errors.New("report not found")
	ErrInvalidReportStatus = errors.New("invalid report status")
)
