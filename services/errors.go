package services

// ServiceError carries a business error code for the response envelope.
// Codes are stable strings the client branches on; messages are shown
// to the user as-is.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

var (
	ErrNotFound = NewServiceError("NOT_FOUND", "资源不存在")

	ErrInvalidCode    = NewServiceError("INVALID_CODE", "邀请码无效")
	ErrCodeUsed       = NewServiceError("CODE_USED", "邀请码已被使用")
	ErrCodeExpired    = NewServiceError("CODE_EXPIRED", "邀请码已过期")
	ErrSelfInvitation = NewServiceError("SELF_INVITATION", "不能使用自己的邀请码")
	ErrAlreadyPartner = NewServiceError("ALREADY_PARTNERS", "你们已经是旅行搭档了")

	ErrProRequired = NewServiceError("PRO_REQUIRED", "该功能需要开通会员")
)
