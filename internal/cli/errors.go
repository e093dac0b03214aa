package cli

import "github.com/llehouerou/lastcord/internal/errmsg"

// opError carries an errmsg-formatted message for the user while keeping
// the cause for errors.Is.
type opError struct {
	msg string
	err error
}

func (e *opError) Error() string { return e.msg }
func (e *opError) Unwrap() error { return e.err }

func failed(op errmsg.Op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{msg: errmsg.FormatWith(op, subject, err), err: err}
}
