package util

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// 分类错误，controller 根据分类映射 HTTP 状态码
var (
	ErrNotFound            = errors.New("not found")
	ErrContestInaccessible = errors.New("contest not found")
	ErrContestPrivate      = errors.New("contest is private")
	ErrForbidden           = errors.New("forbidden")
	ErrPermissionDenied    = fmt.Errorf("%w: permission denied", ErrForbidden)
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
)

var (
	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrEmailRegistered      = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken        = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	ErrBannedFromContest    = fmt.Errorf("%w: you have been declared persona non grata for this contest", ErrForbidden)
	ErrAlreadyInContest     = fmt.Errorf("%w: already in a contest, leave it before joining another", ErrConflict)
	ErrAccessCodeRequired   = fmt.Errorf("%w: access code required", ErrForbidden)
	ErrContestNotOngoing    = fmt.Errorf("%w: contest is not ongoing", ErrValidation)
	ErrContestNotStarted    = fmt.Errorf("%w: contest has not started", ErrValidation)
	ErrNotInContest         = fmt.Errorf("%w: not in contest", ErrNotFound)
	ErrParticipationEnded   = fmt.Errorf("%w: participation has ended", ErrValidation)
	ErrTooManyVirtualJoins  = fmt.Errorf("%w: could not allocate a virtual participation", ErrConflict)
	ErrDuplicateSubmission  = fmt.Errorf("%w: submission already has answers", ErrConflict)
	ErrInvalidAnswerKey     = fmt.Errorf("%w: invalid answer key", ErrValidation)
	ErrInvalidLabelScript   = fmt.Errorf("%w: problem label script", ErrValidation)
	ErrUnknownContestFormat = fmt.Errorf("%w: unknown contest format", ErrValidation)
	ErrOrganizationFull     = fmt.Errorf("%w: organization has no free slots", ErrConflict)
	ErrAlreadyMember        = fmt.Errorf("%w: already a member", ErrConflict)
	ErrRequestPending       = fmt.Errorf("%w: a request is already pending", ErrConflict)
	ErrEditorialUnavailable = fmt.Errorf("%w: editorial", ErrNotFound)
)

// TranslateDBError 将 gorm 错误转换为领域错误
func TranslateDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case IsDuplicateKey(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// IsDuplicateKey 唯一索引冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}
