package optimizer

import (
	"errors"
	"fmt"
)

// エラーコード
const (
	CodeIO             = "IO_ERROR"
	CodeUnsupportedPDF = "UNSUPPORTED_PDF"
	CodeCodec          = "CODEC_ERROR"
	CodeFetch          = "FETCH_FAILED"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeLimitExceeded  = "LIMIT_EXCEEDED"
)

var (
	// ErrNoPages はページを1枚も持たない文書に対して返されます。
	ErrNoPages = errors.New("PDF document contains no pages")
	// ErrMissingRoot はルートカタログを解決できない文書に対して返されます。
	ErrMissingRoot = errors.New("PDF document is missing root catalog")
)

// Error はファイル単位で利用者へ返すエラーです。
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError はコード付きエラーを生成します。
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf はエラーチェーン中の Error のコードを返します。
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
