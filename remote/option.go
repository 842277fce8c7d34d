package remote

type Option func(*Options)

// Options задают необязательные параметры записи, создания каталога,
// копирования и перемещения.
type Options struct {
	// Visibility задаёт видимость файла. Для Write при отсутствии используется
	// VisibilityPrivate. Для Copy и Move передаётся только допустимое значение.
	Visibility Visibility

	// DirectoryVisibility задаёт видимость создаваемых каталогов. Для
	// CreateDirectory при отсутствии используется Visibility, затем
	// VisibilityPrivate.
	DirectoryVisibility Visibility
}

// WithVisibility устанавливает видимость файла.
func WithVisibility(v Visibility) Option {
	return func(o *Options) {
		o.Visibility = v
	}
}

// WithDirectoryVisibility устанавливает видимость каталогов.
func WithDirectoryVisibility(v Visibility) Option {
	return func(o *Options) {
		o.DirectoryVisibility = v
	}
}

// NewOptions собирает параметры из списка опций.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// FileVisibility возвращает видимость для записи файла.
func (o *Options) FileVisibility() Visibility {
	if o.Visibility != "" {
		return o.Visibility
	}
	return VisibilityPrivate
}

// DirVisibility возвращает видимость для создания каталога.
func (o *Options) DirVisibility() Visibility {
	if o.DirectoryVisibility != "" {
		return o.DirectoryVisibility
	}
	return o.FileVisibility()
}
