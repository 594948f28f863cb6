package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Is 只比较 Code，使 WithMessage 派生出的错误仍能被 errors.Is 识别
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithMessage 复制一份错误并替换消息，Code 不变
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, err.Error()
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrTooManyRequests  = Errno{Code: 10005, Message: "Too many requests"}
)

// Wallet Errors (30000+)
var (
	ErrInvalidMnemonic     = Errno{Code: 30001, Message: "Invalid mnemonic"}
	ErrWalletAlreadyExists = Errno{Code: 30002, Message: "Wallet already exists"}
	ErrProvisionInProgress = Errno{Code: 30003, Message: "Wallet provisioning already in progress"}
	ErrWalletNotFound      = Errno{Code: 30004, Message: "Wallet not found"}
	ErrNoPendingDisclosure = Errno{Code: 30005, Message: "No recovery phrase pending disclosure"}
)

// Withdrawal Errors (30100+)
var (
	ErrInsufficientBalance     = Errno{Code: 30101, Message: "Insufficient balance"}
	ErrInvalidRecipientAddress = Errno{Code: 30102, Message: "Invalid recipient address"}
	ErrFeeEstimationFailed     = Errno{Code: 30103, Message: "Fee estimation failed"}
	ErrBroadcastRejected       = Errno{Code: 30104, Message: "Broadcast rejected"}
	ErrConfirmationFailed      = Errno{Code: 30105, Message: "Transaction failed on chain"}
	ErrWithdrawalInFlight      = Errno{Code: 30106, Message: "Another withdrawal is being submitted"}
	ErrWithdrawalNotFound      = Errno{Code: 30107, Message: "Withdrawal not found"}
	ErrUnsupportedChain        = Errno{Code: 30110, Message: "Unsupported chain"}
	ErrUnsupportedToken        = Errno{Code: 30111, Message: "Unsupported token"}
	ErrInvalidAmount           = Errno{Code: 30112, Message: "Invalid amount"}
)

// Credential Errors (30200+)
var (
	ErrCredentialRenewalFailed = Errno{Code: 30201, Message: "Credential renewal failed"}
)
