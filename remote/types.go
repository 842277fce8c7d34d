package remote

import "time"

// Metadata метаданные файла
type Metadata map[string]any

// Visibility описывает видимость файла или каталога.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility возвращает видимость или пустое значение, если строка не
// является допустимой видимостью.
func ParseVisibility(s string) Visibility {
	switch v := Visibility(s); v {
	case VisibilityPublic, VisibilityPrivate:
		return v
	default:
		return ""
	}
}

// Valid сообщает, является ли значение допустимой видимостью.
func (v Visibility) Valid() bool { return ParseVisibility(string(v)) != "" }

// EntryType различает элементы листинга.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// StorageAttributes описывает элемент листинга: *FileAttributes или *DirectoryAttributes.
type StorageAttributes interface {
	Type() EntryType
	Location() string
	isStorageAttributes()
}

// Убеждаемся в том, что оба типа реализуют StorageAttributes.
var (
	_ StorageAttributes = (*FileAttributes)(nil)
	_ StorageAttributes = (*DirectoryAttributes)(nil)
)

// FileAttributes описывает файл. Пустые и nil поля означают, что значение
// неизвестно.
type FileAttributes struct {
	Path          string
	Visibility    Visibility
	LastModified  *time.Time
	FileSize      *int64
	MimeType      string
	ExtraMetadata Metadata
}

func (*FileAttributes) Type() EntryType { return EntryFile }
func (f *FileAttributes) Location() string { return f.Path }
func (*FileAttributes) isStorageAttributes() {}

// DirectoryAttributes описывает каталог.
type DirectoryAttributes struct {
	Path          string
	Visibility    Visibility
	LastModified  *time.Time
	ExtraMetadata Metadata
}

func (*DirectoryAttributes) Type() EntryType { return EntryDir }
func (d *DirectoryAttributes) Location() string { return d.Path }
func (*DirectoryAttributes) isStorageAttributes() {}

// UnixTime переводит секунды эпохи в *time.Time.
func UnixTime(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

// Int64 возвращает указатель на значение.
func Int64(v int64) *int64 { return &v }
