package remote

import (
	"errors"
	"strings"
)

var (
	ErrNoScheme      = errors.New("no scheme")
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrUnknownScheme = errors.New("unknown storage scheme")
)

// schemeFromURL возвращает схему строки подключения в нижнем регистре.
// Схема должна начинаться с буквы и состоять из букв, цифр и символов "+-.".
func schemeFromURL(url string) (string, error) {
	if url == "" {
		return "", ErrEmptyURL
	}
	scheme, _, ok := strings.Cut(url, ":")
	if !ok || !validScheme(scheme) {
		return "", ErrNoScheme
	}
	return strings.ToLower(scheme), nil
}

func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
