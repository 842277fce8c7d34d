package remote

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
)

var (
	storagesMu sync.RWMutex
	storages   = make(map[string]Storage)
)

// Storage описывает набор операций удалённого хранилища.
type Storage interface {
	NewStorage(ctx context.Context, connString string) (Storage, error)

	// FileExists определяет, существует ли файл.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirectoryExists определяет, существует ли каталог.
	DirectoryExists(ctx context.Context, path string) (bool, error)

	// Write записывает содержимое файла.
	Write(ctx context.Context, path string, contents []byte, opts ...Option) error

	// WriteStream записывает содержимое файла из потока.
	WriteStream(ctx context.Context, path string, r io.Reader, opts ...Option) error

	// Read читает файл целиком.
	Read(ctx context.Context, path string) ([]byte, error)

	// ReadStream открывает файл на чтение. Поток закрывает вызывающая сторона.
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete удаляет файл.
	Delete(ctx context.Context, path string) error

	// DeleteDirectory удаляет каталог вместе с содержимым.
	DeleteDirectory(ctx context.Context, path string) error

	// CreateDirectory создаёт каталог.
	CreateDirectory(ctx context.Context, path string, opts ...Option) error

	// SetVisibility устанавливает видимость файла.
	SetVisibility(ctx context.Context, path string, visibility Visibility) error

	Visibility(ctx context.Context, path string) (*FileAttributes, error)
	MimeType(ctx context.Context, path string) (*FileAttributes, error)
	LastModified(ctx context.Context, path string) (*FileAttributes, error)
	FileSize(ctx context.Context, path string) (*FileAttributes, error)

	// ListContents возвращает содержимое каталога. Запрос отправляется при
	// начале обхода; каждый обход выполняет собственный запрос.
	ListContents(ctx context.Context, path string, deep bool) iter.Seq2[StorageAttributes, error]

	// Move перемещает файл.
	Move(ctx context.Context, source, destination string, opts ...Option) error

	// Copy копирует файл.
	Copy(ctx context.Context, source, destination string, opts ...Option) error
}

// NewStorage создаёт новый экземпляр удаленного хранилища.
func NewStorage(ctx context.Context, connString string) (Storage, error) {
	scheme, err := schemeFromURL(connString)
	if err != nil {
		return nil, err
	}

	storagesMu.RLock()
	s, ok := storages[scheme]
	storagesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %v (forgotten import?)", ErrUnknownScheme, scheme)
	}

	return s.NewStorage(ctx, connString)
}

// Register глобально регистрирует хранилище.
func Register(name string, storage Storage) {
	storagesMu.Lock()
	defer storagesMu.Unlock()

	if storage == nil {
		panic("Register storage is nil")
	}

	if _, exists := storages[name]; exists {
		panic("Register called twice for storage " + name)
	}

	storages[name] = storage
}

// Schemes возвращает список зарегистрированных схем.
func Schemes() []string {
	storagesMu.RLock()
	defer storagesMu.RUnlock()

	list := make([]string, 0, len(storages))
	for name := range storages {
		list = append(list, name)
	}
	return list
}
