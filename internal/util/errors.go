package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrBookNotFound        = errors.New("book not found")
	ErrPageNotFound        = errors.New("page not found")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrAssignmentCompleted = errors.New("assignment already submitted")
	ErrSessionNotFound     = errors.New("session not found or expired")
	ErrSessionClosed       = errors.New("session is closed")
	ErrSubmitInFlight      = errors.New("submission already in flight")
	ErrActivityNotFound    = errors.New("activity not in assignment")
	ErrTimeLimitExceeded   = errors.New("time limit exceeded, no further edits accepted")
	ErrMediaSourceEmpty    = errors.New("media source is empty")
	ErrPageSizeUnknown     = errors.New("page natural size not reported yet")
	ErrSubmitFailed        = errors.New("submit failed, progress preserved")
)
