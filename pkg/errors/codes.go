package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeConflict        ErrorCode = "COMMON_006"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeDatabaseError   ErrorCode = "COMMON_012"
	ErrCodeCacheError      ErrorCode = "COMMON_013"
	ErrCodeExternalService ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled ErrorCode = "COMMON_015"
	ErrCodeNotImplemented  ErrorCode = "COMMON_016"
	ErrCodeConfigInvalid   ErrorCode = "COMMON_017"
)

// Aliases used at call sites.
const (
	CodeUnknown        = ErrorCode("UNKNOWN")
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeValidation     = ErrCodeValidation
	CodeNotImplemented = ErrCodeNotImplemented
	CodeConfigInvalid  = ErrCodeConfigInvalid

	CodePatentNotFound       = ErrCodePatentNotFound
	CodePatentNumberInvalid  = ErrCodePatentNumberInvalid
	CodeResolutionIncomplete = ErrCodeResolutionIncomplete
	CodeEntityNotFound       = ErrCodeEntityNotFound
)

// Patent Module Error Codes
const (
	ErrCodePatentNotFound      ErrorCode = "PAT_001"
	ErrCodePatentAlreadyExists ErrorCode = "PAT_002"
	ErrCodePatentNumberInvalid ErrorCode = "PAT_003"
	ErrCodePatentParseFailed   ErrorCode = "PAT_006"
)

// Resolution Module Error Codes
const (
	ErrCodeResolutionIncomplete ErrorCode = "RES_001"
	ErrCodeEntityNotFound       ErrorCode = "RES_002"
	ErrCodeEntityKindUnknown    ErrorCode = "RES_003"
	ErrCodeMergeLocked          ErrorCode = "RES_004"
)

// Staging Module Error Codes
const (
	ErrCodeStagingExportFailed ErrorCode = "STG_001"
	ErrCodeStagingEmpty        ErrorCode = "STG_002"
)

// Infrastructure Error Codes
const (
	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeExternalService
	CodeStorageError      = ErrCodeExternalService
)

// ErrorCodeExitStatus maps ErrorCodes to process exit statuses used by the CLI.
// 2 marks bad input, 3 marks a store failure, 1 everything else.
var ErrorCodeExitStatus = map[ErrorCode]int{
	ErrCodeBadRequest:           2,
	ErrCodeValidation:           2,
	ErrCodeConfigInvalid:        2,
	ErrCodePatentNumberInvalid:  2,
	ErrCodePatentParseFailed:    2,
	ErrCodeResolutionIncomplete: 2,
	ErrCodeEntityKindUnknown:    2,
	ErrCodeNotFound:             2,
	ErrCodePatentNotFound:       2,
	ErrCodeEntityNotFound:       2,

	ErrCodeDatabaseError: 3,
	ErrCodeConflict:      3,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeConflict:        "resource conflict",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeDatabaseError:   "database error",
	ErrCodeCacheError:      "cache error",
	ErrCodeExternalService: "external service error",
	ErrCodeFeatureDisabled: "feature disabled",
	ErrCodeNotImplemented:  "not implemented",
	ErrCodeConfigInvalid:   "invalid configuration",

	ErrCodePatentNotFound:      "patent not found",
	ErrCodePatentAlreadyExists: "patent already exists",
	ErrCodePatentNumberInvalid: "invalid patent number",
	ErrCodePatentParseFailed:   "failed to parse patent document",

	ErrCodeResolutionIncomplete: "consensus is missing a required field",
	ErrCodeEntityNotFound:       "raw entity not found",
	ErrCodeEntityKindUnknown:    "unknown entity kind",
	ErrCodeMergeLocked:          "merge lock not acquired",

	ErrCodeStagingExportFailed: "staging export failed",
	ErrCodeStagingEmpty:        "nothing staged",
}

// ExitStatusForCode returns the CLI exit status for an ErrorCode.
func ExitStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeExitStatus[code]; ok {
		return status
	}
	return 1
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsInputError returns true if the ErrorCode blames the caller's input.
func IsInputError(code ErrorCode) bool {
	return ExitStatusForCode(code) == 2
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
