package remote

import (
	"errors"
	"fmt"
)

// ErrorKind определяет вид ошибки файловой системы. Набор закрыт.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPathTraversalDetected
	KindSymbolicLinkEncountered
	KindInvalidVisibilityProvided
	KindCorruptedPathDetected
	KindUnableToResolveFilesystemMount
	KindInvalidStreamProvided
	KindUnableToSetVisibility
	KindUnableToCheckExistence
	KindUnableToCheckDirectoryExistence
	KindUnableToCheckFileExistence
	KindUnableToCreateDirectory
	KindUnableToWriteFile
	KindUnableToRetrieveMetadata
	KindUnableToCopyFile
	KindUnableToReadFile
	KindUnableToDeleteFile
	KindUnableToMoveFile
	KindUnableToDeleteDirectory
	KindUnableToMountFilesystem
	KindUnreadableFileEncountered
)

var kindNames = [...]string{
	KindUnknown:                         "UnknownFilesystemException",
	KindPathTraversalDetected:           "PathTraversalDetected",
	KindSymbolicLinkEncountered:         "SymbolicLinkEncountered",
	KindInvalidVisibilityProvided:       "InvalidVisibilityProvided",
	KindCorruptedPathDetected:           "CorruptedPathDetected",
	KindUnableToResolveFilesystemMount:  "UnableToResolveFilesystemMount",
	KindInvalidStreamProvided:           "InvalidStreamProvided",
	KindUnableToSetVisibility:           "UnableToSetVisibility",
	KindUnableToCheckExistence:          "UnableToCheckExistence",
	KindUnableToCheckDirectoryExistence: "UnableToCheckDirectoryExistence",
	KindUnableToCheckFileExistence:      "UnableToCheckFileExistence",
	KindUnableToCreateDirectory:         "UnableToCreateDirectory",
	KindUnableToWriteFile:               "UnableToWriteFile",
	KindUnableToRetrieveMetadata:        "UnableToRetrieveMetadata",
	KindUnableToCopyFile:                "UnableToCopyFile",
	KindUnableToReadFile:                "UnableToReadFile",
	KindUnableToDeleteFile:              "UnableToDeleteFile",
	KindUnableToMoveFile:                "UnableToMoveFile",
	KindUnableToDeleteDirectory:         "UnableToDeleteDirectory",
	KindUnableToMountFilesystem:         "UnableToMountFilesystem",
	KindUnreadableFileEncountered:       "UnreadableFileEncountered",
}

// String возвращает имя вида в том виде, в каком его передаёт сервер.
func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// ParseErrorKind сопоставляет имя ошибки сервера виду. Неизвестные имена
// дают KindUnknown.
func ParseErrorKind(name string) ErrorKind {
	switch name {
	case "PathTraversalDetected":
		return KindPathTraversalDetected
	case "SymbolicLinkEncountered":
		return KindSymbolicLinkEncountered
	case "InvalidVisibilityProvided":
		return KindInvalidVisibilityProvided
	case "CorruptedPathDetected":
		return KindCorruptedPathDetected
	case "UnableToResolveFilesystemMount":
		return KindUnableToResolveFilesystemMount
	case "InvalidStreamProvided":
		return KindInvalidStreamProvided
	case "UnableToSetVisibility":
		return KindUnableToSetVisibility
	case "UnableToCheckExistence":
		return KindUnableToCheckExistence
	case "UnableToCheckDirectoryExistence":
		return KindUnableToCheckDirectoryExistence
	case "UnableToCheckFileExistence":
		return KindUnableToCheckFileExistence
	case "UnableToCreateDirectory":
		return KindUnableToCreateDirectory
	case "UnableToWriteFile":
		return KindUnableToWriteFile
	case "UnableToRetrieveMetadata":
		return KindUnableToRetrieveMetadata
	case "UnableToCopyFile":
		return KindUnableToCopyFile
	case "UnableToReadFile":
		return KindUnableToReadFile
	case "UnableToDeleteFile":
		return KindUnableToDeleteFile
	case "UnableToMoveFile":
		return KindUnableToMoveFile
	case "UnableToDeleteDirectory":
		return KindUnableToDeleteDirectory
	case "UnableToMountFilesystem":
		return KindUnableToMountFilesystem
	case "UnreadableFileEncountered":
		return KindUnreadableFileEncountered
	default:
		return KindUnknown
	}
}

// Error описывает типизированную ошибку файловой системы.
type Error struct {
	Kind    ErrorKind
	Name    string // имя ошибки, полученное от сервера; пусто для локальных ошибок
	Message string
	Code    int
	Err     error
}

// NewError создаёт ошибку заданного вида.
func NewError(kind ErrorKind, message string, code int) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// WrapError оборачивает ошибку транспорта в ошибку заданного вида.
func WrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: "http error: " + err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Kind.String()
	if e.Kind == KindUnknown && e.Name != "" {
		name = e.Name
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", name, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", name, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает ошибки по виду, если цель является сигнальным значением без
// сообщения и кода.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if t.Message != "" || t.Code != 0 || t.Err != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// KindOf возвращает вид ошибки или KindUnknown и false, если err не *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknown, false
}

// Сигнальные значения для errors.Is.
var (
	ErrUnknownFilesystem               = &Error{Kind: KindUnknown}
	ErrPathTraversalDetected           = &Error{Kind: KindPathTraversalDetected}
	ErrSymbolicLinkEncountered         = &Error{Kind: KindSymbolicLinkEncountered}
	ErrInvalidVisibilityProvided       = &Error{Kind: KindInvalidVisibilityProvided}
	ErrCorruptedPathDetected           = &Error{Kind: KindCorruptedPathDetected}
	ErrUnableToResolveFilesystemMount  = &Error{Kind: KindUnableToResolveFilesystemMount}
	ErrInvalidStreamProvided           = &Error{Kind: KindInvalidStreamProvided}
	ErrUnableToSetVisibility           = &Error{Kind: KindUnableToSetVisibility}
	ErrUnableToCheckExistence          = &Error{Kind: KindUnableToCheckExistence}
	ErrUnableToCheckDirectoryExistence = &Error{Kind: KindUnableToCheckDirectoryExistence}
	ErrUnableToCheckFileExistence      = &Error{Kind: KindUnableToCheckFileExistence}
	ErrUnableToCreateDirectory         = &Error{Kind: KindUnableToCreateDirectory}
	ErrUnableToWriteFile               = &Error{Kind: KindUnableToWriteFile}
	ErrUnableToRetrieveMetadata        = &Error{Kind: KindUnableToRetrieveMetadata}
	ErrUnableToCopyFile                = &Error{Kind: KindUnableToCopyFile}
	ErrUnableToReadFile                = &Error{Kind: KindUnableToReadFile}
	ErrUnableToDeleteFile              = &Error{Kind: KindUnableToDeleteFile}
	ErrUnableToMoveFile                = &Error{Kind: KindUnableToMoveFile}
	ErrUnableToDeleteDirectory         = &Error{Kind: KindUnableToDeleteDirectory}
	ErrUnableToMountFilesystem         = &Error{Kind: KindUnableToMountFilesystem}
	ErrUnreadableFileEncountered       = &Error{Kind: KindUnreadableFileEncountered}
)
