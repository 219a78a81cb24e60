package domain

import "errors"

// Бизнес-ошибки (маппятся на HTTP коды в transport/web/v1)
var (
	ErrBadParams      = errors.New("bad params")      // 400
	ErrUnauth         = errors.New("unauthorized")    // 401
	ErrForbidden      = errors.New("forbidden")       // 403
	ErrNotFound       = errors.New("not found")       // 404
	ErrConflict       = errors.New("conflict")        // 409
	ErrNotImplemented = errors.New("not implemented") // 501
	ErrUnexpected     = errors.New("unexpected")      // 500
)
