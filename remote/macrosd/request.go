package macrosd

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"

	"github.com/tenrok/sdstore/remote"
)

// endpoint связывает имя метода сервера с видом ошибки, в которую
// превращается сбой транспорта.
type endpoint struct {
	name string
	kind remote.ErrorKind
}

var (
	epFileExists      = endpoint{"fileExists", remote.KindUnableToCheckFileExistence}
	epDirectoryExists = endpoint{"directoryExists", remote.KindUnableToCheckDirectoryExistence}
	epWrite           = endpoint{"write", remote.KindUnableToWriteFile}
	epRead            = endpoint{"read", remote.KindUnableToReadFile}
	epDelete          = endpoint{"delete", remote.KindUnableToDeleteFile}
	epDeleteDirectory = endpoint{"deleteDirectory", remote.KindUnableToDeleteDirectory}
	epCreateDirectory = endpoint{"createDirectory", remote.KindUnableToCreateDirectory}
	epSetVisibility   = endpoint{"setVisibility", remote.KindUnableToSetVisibility}
	epVisibility      = endpoint{"visibility", remote.KindUnableToRetrieveMetadata}
	epMimeType        = endpoint{"mimeType", remote.KindUnableToRetrieveMetadata}
	epLastModified    = endpoint{"lastModified", remote.KindUnableToRetrieveMetadata}
	epFileSize        = endpoint{"fileSize", remote.KindUnableToRetrieveMetadata}
	epListContents    = endpoint{"listContents", remote.KindUnableToReadFile}
	epMove            = endpoint{"move", remote.KindUnableToMoveFile}
	epCopy            = endpoint{"copy", remote.KindUnableToCopyFile}
)

// basicAuth возвращает значение заголовка Authorization.
func basicAuth(user, password string) string {
	return "basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

// newRequest строит POST {host}/?{query}. Имя метода всегда передаётся в
// параметре method; значения аргументов не проверяются.
func (s *MacroSDStorage) newRequest(ctx context.Context, method string, args url.Values, body io.Reader) (*http.Request, error) {
	query := make(url.Values, len(args)+1)
	for k, v := range args {
		query[k] = v
	}
	query.Set("method", method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Host+"/?"+query.Encode(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", s.auth)
	return req, nil
}

// location возвращает аргументы операций над одним путём.
func location(path string) url.Values {
	return url.Values{"location": {path}}
}

// copyArguments возвращает аргументы copy и move. Видимости передаются только
// если они допустимы.
func copyArguments(source, destination string, o *remote.Options) url.Values {
	args := url.Values{
		"source":      {source},
		"destination": {destination},
	}
	if o.Visibility.Valid() {
		args.Set("visibility", string(o.Visibility))
	}
	if o.DirectoryVisibility.Valid() {
		args.Set("directory_visibility", string(o.DirectoryVisibility))
	}
	return args
}
