package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeUnauthorized      = 1003
	ErrCodeSessionNotFound   = 2001
	ErrCodeSessionExists     = 2002
	ErrCodeNotSeated         = 2003
	ErrCodeInvalidPhase      = 3001
	ErrCodeNotYourTurn       = 3002
	ErrCodeNotInHand         = 3003
	ErrCodeIllegalPlayType   = 3004
	ErrCodePlayTooLow        = 3005
	ErrCodeMustPlay          = 3006
	ErrCodeAlreadyChosen     = 3007
	ErrCodeLockedOut         = 3008
	ErrCodeInvalidChoice     = 3009
	ErrCodeGameAborted       = 4001
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorReasons 错误码对应的稳定原因标识，客户端据此映射文案
var ErrorReasons = map[int]string{
	ErrCodeUnknown:           "Unknown",
	ErrCodeInvalidMsg:        "InvalidMessage",
	ErrCodeRateLimit:         "RateLimited",
	ErrCodeUnauthorized:      "Unauthorized",
	ErrCodeSessionNotFound:   "SessionNotFound",
	ErrCodeSessionExists:     "SessionAlreadyExists",
	ErrCodeNotSeated:         "NotSeated",
	ErrCodeInvalidPhase:      "InvalidPhase",
	ErrCodeNotYourTurn:       "NotYourTurn",
	ErrCodeNotInHand:         "NotInHand",
	ErrCodeIllegalPlayType:   "IllegalPlayType",
	ErrCodePlayTooLow:        "PlayTooLow",
	ErrCodeMustPlay:          "MustPlay",
	ErrCodeAlreadyChosen:     "AlreadyChosen",
	ErrCodeLockedOut:         "LockedOut",
	ErrCodeInvalidChoice:     "InvalidChoice",
	ErrCodeGameAborted:       "GameAborted",
	ErrCodeServerMaintenance: "Maintenance",
}

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeUnauthorized:      "身份验证失败",
	ErrCodeSessionNotFound:   "对局不存在",
	ErrCodeSessionExists:     "对局已存在",
	ErrCodeNotSeated:         "您不在该对局中",
	ErrCodeInvalidPhase:      "当前阶段不允许该操作",
	ErrCodeNotYourTurn:       "还没轮到您",
	ErrCodeNotInHand:         "您没有这些牌",
	ErrCodeIllegalPlayType:   "无效的牌型",
	ErrCodePlayTooLow:        "您的牌大不过上家",
	ErrCodeMustPlay:          "新一轮必须出牌",
	ErrCodeAlreadyChosen:     "您已经选择过了",
	ErrCodeLockedOut:         "本局您不能出牌",
	ErrCodeInvalidChoice:     "无效的加倍选项",
	ErrCodeGameAborted:       "对局异常终止",
	ErrCodeServerMaintenance: "服务器维护中",
}
