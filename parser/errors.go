package parser

import "errors"

// Error kinds the parser can return. Each is a sentinel wrapped with
// context via fmt.Errorf("%w: ...", kind); callers distinguish kinds
// with errors.Is.
var (
	// ErrUnexpectedEndOfStream is returned when the input closes at a
	// suspension point that required more bytes to make progress.
	ErrUnexpectedEndOfStream = errors.New("parser: unexpected end of stream")

	// ErrInvalidHeader is returned when header bytes violate the explicit-VR
	// table or declare an illegal indeterminate length.
	ErrInvalidHeader = errors.New("parser: invalid header")

	// ErrUnsupportedTransferSyntax is returned in strict mode when the FMI's
	// TransferSyntaxUID is not one this module recognizes.
	ErrUnsupportedTransferSyntax = errors.New("parser: unsupported transfer syntax")

	// ErrInconsistentGroupLength is returned in strict mode when the FMI's
	// declared FileMetaInformationGroupLength does not match the observed
	// byte length of the elements that follow it.
	ErrInconsistentGroupLength = errors.New("parser: inconsistent FMI group length")
)
