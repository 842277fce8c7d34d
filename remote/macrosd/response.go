package macrosd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tenrok/sdstore/remote"
)

// checkResponse возвращает типизированную ошибку, если сервер ответил кодом 500 со
// структурированным телом {error, message, code}. Любой другой ответ, в том
// числе 500 с телом другой формы, считается успешным; тело при этом остаётся
// доступным для чтения.
func checkResponse(resp *http.Response, kind remote.ErrorKind) (structured bool, err error) {
	if resp.StatusCode != http.StatusInternalServerError {
		return false, nil
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return false, &remote.Error{Kind: kind, Message: "read error response: " + err.Error(), Err: err}
	}

	if e := decodeErrorPayload(data); e != nil {
		return true, e
	}
	return false, nil
}

// decodeErrorPayload разбирает тело ошибки. Возвращает nil, если тело не
// является объектом, error не строка, message не строка или code не целое.
// Отсутствующие или null message и code считаются "" и 0.
func decodeErrorPayload(data []byte) *remote.Error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	v, ok := raw["error"]
	if !ok || isNull(v) {
		return nil
	}
	var name string
	if err := json.Unmarshal(v, &name); err != nil {
		return nil
	}

	var message string
	if v, ok := raw["message"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &message); err != nil {
			return nil
		}
	}

	var code int
	if v, ok := raw["code"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &code); err != nil {
			return nil
		}
	}

	return &remote.Error{
		Kind:    remote.ParseErrorKind(name),
		Name:    name,
		Message: message,
		Code:    code,
	}
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// decodeJSON декодирует тело успешного ответа и закрывает его.
func decodeJSON(resp *http.Response, kind remote.ErrorKind, out any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &remote.Error{Kind: kind, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

// drain закрывает тело ответа операции без результата.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
