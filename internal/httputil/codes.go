package httputil

// Code is a machine-readable error code returned alongside the
// human-readable message so API clients can branch without parsing text.
type Code string

const (
	CodeInvalidRequestBody       Code = "INVALID_REQUEST_BODY"
	CodeDuplicateUser            Code = "DUPLICATE_USER"
	CodeUsernameRequired         Code = "USERNAME_REQUIRED"
	CodeEmailRequired            Code = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat       Code = "INVALID_EMAIL_FORMAT"
	CodePasswordRequired         Code = "PASSWORD_REQUIRED"
	CodePasswordTooShort         Code = "PASSWORD_TOO_SHORT"
	CodeInvalidCredentials       Code = "INVALID_CREDENTIALS"
	CodeAccountNotVerified       Code = "ACCOUNT_NOT_VERIFIED"
	CodeInvalidVerificationToken Code = "INVALID_VERIFICATION_TOKEN"
	CodeInvalidRefreshToken      Code = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired      Code = "REFRESH_TOKEN_EXPIRED"
	CodeUserNotFound             Code = "USER_NOT_FOUND"
	CodeMissingAuth              Code = "MISSING_AUTH"
	CodeInvalidAuthHeader        Code = "INVALID_AUTH_HEADER"
	CodeInvalidToken             Code = "INVALID_TOKEN"
	CodeTokenExpired             Code = "TOKEN_EXPIRED"
	CodeInternalError            Code = "INTERNAL_ERROR"
)
