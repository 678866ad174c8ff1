package loan

import "errors"

type ErrCode string

const (
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrNoCopyAvailable   ErrCode = "NO_COPY_AVAILABLE"
	ErrDuplicateOpenLoan ErrCode = "DUPLICATE_OPEN_LOAN"
	ErrUnpaidFine        ErrCode = "UNPAID_FINE"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrNotOwner          ErrCode = "NOT_OWNER"
	ErrAlreadyReturned   ErrCode = "ALREADY_RETURNED"
	ErrReserved          ErrCode = "RESERVED"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts the error code; empty for internal failures.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
