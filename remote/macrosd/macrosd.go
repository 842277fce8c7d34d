package macrosd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tenrok/sdstore/internal/logging"
	"github.com/tenrok/sdstore/internal/metrics"
	"github.com/tenrok/sdstore/remote"
)

const tracerName = "github.com/tenrok/sdstore/remote/macrosd"

// Убеждаемся в том, что мы всегда реализуем интерфейс remote.Storage.
var _ remote.Storage = (*MacroSDStorage)(nil)

func init() {
	remote.Register("macrosd", &MacroSDStorage{})
}

// Doer отправляет HTTP-запрос. *http.Client реализует этот интерфейс.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*MacroSDStorage)

// WithHTTPClient задаёт транспорт. По умолчанию используется http.Client без таймаута.
func WithHTTPClient(client Doer) Option {
	return func(s *MacroSDStorage) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *zap.Logger) Option {
	return func(s *MacroSDStorage) {
		s.logger = logging.OrNop(logger)
	}
}

// WithTracer задаёт трассировщик.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *MacroSDStorage) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics задаёт метрики. nil отключает их.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *MacroSDStorage) {
		s.metrics = m
	}
}

// MacroSDStorage описывает хранилище на сервере macrosd. Экземпляр не изменяется после
// создания и может использоваться конкурентно, если это допускает транспорт.
type MacroSDStorage struct {
	cfg     Config
	auth    string
	client  Doer
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// New создаёт хранилище по конфигурации.
func New(cfg Config, opts ...Option) *MacroSDStorage {
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	s := &MacroSDStorage{
		cfg:    cfg,
		auth:   basicAuth(cfg.User, cfg.Password),
		client: &http.Client{},
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewStorage создаёт хранилище по строке подключения. Используются глобальный
// логгер zap и метрики по умолчанию.
func (s *MacroSDStorage) NewStorage(_ context.Context, connString string) (remote.Storage, error) {
	cfg, err := NewConfig(connString)
	if err != nil {
		return nil, err
	}
	return New(*cfg, WithLogger(zap.L()), WithMetrics(metrics.Default())), nil
}

// call отправляет запрос и проверяет ответ. При успехе тело ответа принадлежит
// вызывающей стороне.
func (s *MacroSDStorage) call(ctx context.Context, ep endpoint, args url.Values, body io.Reader) (*http.Response, error) {
	ctx, span := s.tracer.Start(ctx, "macrosd."+ep.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("macrosd.method", ep.name)),
	)
	defer span.End()
	start := time.Now()

	req, err := s.newRequest(ctx, ep.name, args, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, &remote.Error{Kind: ep.kind, Message: "build request: " + err.Error(), Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.ObserveRequest(ep.name, metrics.OutcomeTransportError, time.Since(start))
		s.logger.Debug("remote call failed", zap.String("method", ep.name), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, remote.WrapError(ep.kind, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	structured, err := checkResponse(resp, ep.kind)
	if err != nil {
		resp.Body.Close()
		s.metrics.ObserveRequest(ep.name, metrics.OutcomeRemoteError, time.Since(start))
		s.logger.Debug("remote error", zap.String("method", ep.name), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote")
		return nil, err
	}
	if !structured && resp.StatusCode == http.StatusInternalServerError {
		s.logger.Warn("unstructured 500 response passed through", zap.String("method", ep.name))
	}

	s.metrics.ObserveRequest(ep.name, metrics.OutcomeOK, time.Since(start))
	s.logger.Debug("remote call",
		zap.String("method", ep.name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// exec выполняет операцию без результата.
func (s *MacroSDStorage) exec(ctx context.Context, ep endpoint, args url.Values) error {
	resp, err := s.call(ctx, ep, args, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// query выполняет операцию и декодирует JSON-результат в out.
func (s *MacroSDStorage) query(ctx context.Context, ep endpoint, args url.Values, out any) error {
	resp, err := s.call(ctx, ep, args, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, ep.kind, out)
}

func (s *MacroSDStorage) FileExists(ctx context.Context, path string) (bool, error) {
	var result struct {
		FileExists bool `json:"fileExists"`
	}
	if err := s.query(ctx, epFileExists, location(path), &result); err != nil {
		return false, err
	}
	return result.FileExists, nil
}

func (s *MacroSDStorage) DirectoryExists(ctx context.Context, path string) (bool, error) {
	var result struct {
		DirectoryExists bool `json:"directoryExists"`
	}
	if err := s.query(ctx, epDirectoryExists, location(path), &result); err != nil {
		return false, err
	}
	return result.DirectoryExists, nil
}

func (s *MacroSDStorage) Write(ctx context.Context, path string, contents []byte, opts ...remote.Option) error {
	if err := s.write(ctx, path, bytes.NewReader(contents), opts); err != nil {
		return err
	}
	s.metrics.AddBytesWritten(len(contents))
	return nil
}

// WriteStream передаёт поток в теле запроса без буферизации. Поток не закрывается.
func (s *MacroSDStorage) WriteStream(ctx context.Context, path string, r io.Reader, opts ...remote.Option) error {
	if r == nil {
		return remote.NewError(remote.KindInvalidStreamProvided, "stream is nil", 0)
	}
	return s.write(ctx, path, struct{ io.Reader }{r}, opts)
}

func (s *MacroSDStorage) write(ctx context.Context, path string, body io.Reader, opts []remote.Option) error {
	o := remote.NewOptions(opts...)
	args := location(path)
	args.Set("visibility", string(o.FileVisibility()))

	resp, err := s.call(ctx, epWrite, args, body)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func (s *MacroSDStorage) Read(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.ReadStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &remote.Error{Kind: epRead.kind, Message: fmt.Sprintf("read %s: %v", path, err), Err: err}
	}
	return data, nil
}

func (s *MacroSDStorage) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := s.call(ctx, epRead, location(path), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s *MacroSDStorage) Delete(ctx context.Context, path string) error {
	return s.exec(ctx, epDelete, location(path))
}

func (s *MacroSDStorage) DeleteDirectory(ctx context.Context, path string) error {
	return s.exec(ctx, epDeleteDirectory, location(path))
}

func (s *MacroSDStorage) CreateDirectory(ctx context.Context, path string, opts ...remote.Option) error {
	o := remote.NewOptions(opts...)
	args := location(path)
	args.Set("visibility", string(o.DirVisibility()))
	return s.exec(ctx, epCreateDirectory, args)
}

// SetVisibility передаёт значение серверу как есть; проверку выполняет сервер.
func (s *MacroSDStorage) SetVisibility(ctx context.Context, path string, visibility remote.Visibility) error {
	args := location(path)
	args.Set("visibility", string(visibility))
	return s.exec(ctx, epSetVisibility, args)
}

func (s *MacroSDStorage) Visibility(ctx context.Context, path string) (*remote.FileAttributes, error) {
	var result struct {
		Visibility string `json:"visibility"`
	}
	if err := s.query(ctx, epVisibility, location(path), &result); err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: path, Visibility: remote.ParseVisibility(result.Visibility)}, nil
}

func (s *MacroSDStorage) MimeType(ctx context.Context, path string) (*remote.FileAttributes, error) {
	var result struct {
		MimeType string `json:"mimeType"`
	}
	if err := s.query(ctx, epMimeType, location(path), &result); err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: path, MimeType: result.MimeType}, nil
}

func (s *MacroSDStorage) LastModified(ctx context.Context, path string) (*remote.FileAttributes, error) {
	var result struct {
		LastModified *int64 `json:"lastModified"`
	}
	if err := s.query(ctx, epLastModified, location(path), &result); err != nil {
		return nil, err
	}
	attrs := &remote.FileAttributes{Path: path}
	if result.LastModified != nil {
		attrs.LastModified = remote.UnixTime(*result.LastModified)
	}
	return attrs, nil
}

func (s *MacroSDStorage) FileSize(ctx context.Context, path string) (*remote.FileAttributes, error) {
	var result struct {
		FileSize *int64 `json:"fileSize"`
	}
	if err := s.query(ctx, epFileSize, location(path), &result); err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: path, FileSize: result.FileSize}, nil
}

func (s *MacroSDStorage) Move(ctx context.Context, source, destination string, opts ...remote.Option) error {
	return s.exec(ctx, epMove, copyArguments(source, destination, remote.NewOptions(opts...)))
}

func (s *MacroSDStorage) Copy(ctx context.Context, source, destination string, opts ...remote.Option) error {
	return s.exec(ctx, epCopy, copyArguments(source, destination, remote.NewOptions(opts...)))
}
