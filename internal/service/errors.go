package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/errs"
)

// errNotMember is returned when the caller asks about a group they do not
// belong to.
var errNotMember = errors.New("caller is not a member of this group")

// toConnectError maps the ledger's error taxonomy onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case errs.IsValidation(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errs.IsConflict(err):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errs.IsInvalidState(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errs.IsNotFound(err):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func permissionDenied(format string, args ...any) error {
	return connect.NewError(connect.CodePermissionDenied, fmt.Errorf(format, args...))
}
