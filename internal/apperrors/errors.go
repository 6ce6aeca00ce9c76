package apperrors

import (
	"errors"

	"github.com/palemoky/spade-three/internal/protocol"
)

// GameError 可恢复的规则/会话错误，携带稳定的错误码
type GameError struct {
	Code    int
	Reason  string
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// Is 按错误码比较，便于 errors.Is 匹配包装后的错误
func (e *GameError) Is(target error) bool {
	var t *GameError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func newGameError(code int) *GameError {
	return &GameError{
		Code:    code,
		Reason:  protocol.ErrorReasons[code],
		Message: protocol.ErrorMessages[code],
	}
}

// 预定义错误
var (
	ErrInvalidPhase         = newGameError(protocol.ErrCodeInvalidPhase)
	ErrNotYourTurn          = newGameError(protocol.ErrCodeNotYourTurn)
	ErrNotInHand            = newGameError(protocol.ErrCodeNotInHand)
	ErrIllegalPlayType      = newGameError(protocol.ErrCodeIllegalPlayType)
	ErrPlayTooLow           = newGameError(protocol.ErrCodePlayTooLow)
	ErrMustPlay             = newGameError(protocol.ErrCodeMustPlay)
	ErrAlreadyChosen        = newGameError(protocol.ErrCodeAlreadyChosen)
	ErrLockedOut            = newGameError(protocol.ErrCodeLockedOut)
	ErrInvalidChoice        = newGameError(protocol.ErrCodeInvalidChoice)
	ErrSessionNotFound      = newGameError(protocol.ErrCodeSessionNotFound)
	ErrSessionAlreadyExists = newGameError(protocol.ErrCodeSessionExists)
	ErrNotSeated            = newGameError(protocol.ErrCodeNotSeated)
	ErrUnauthorized         = newGameError(protocol.ErrCodeUnauthorized)
	ErrGameAborted          = newGameError(protocol.ErrCodeGameAborted)
)

// Code 提取错误码，非 GameError 返回 ErrCodeUnknown
func Code(err error) int {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return protocol.ErrCodeUnknown
}
