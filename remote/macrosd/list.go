package macrosd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strconv"

	"github.com/tenrok/sdstore/remote"
)

// Колонки строки листинга.
const (
	colType = iota
	colPath
	colVisibility
	colLastModified
	colFileSize
	colMimeType
	colExtraMetadata
)

// ListContents запрашивает листинг каталога и лениво декодирует строки CSV.
// Тело ответа закрывается один раз: по окончании обхода, при ошибке или при
// досрочном выходе из цикла.
func (s *MacroSDStorage) ListContents(ctx context.Context, path string, deep bool) iter.Seq2[remote.StorageAttributes, error] {
	return func(yield func(remote.StorageAttributes, error) bool) {
		args := location(path)
		args.Set("deep", strconv.FormatBool(deep))

		resp, err := s.call(ctx, epListContents, args, nil)
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		dec := newListingDecoder(resp.Body)
		for {
			entry, err := dec.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, &remote.Error{Kind: epListContents.kind, Message: "read listing: " + err.Error(), Err: err})
				return
			}
			s.metrics.IncListed(string(entry.Type()))
			if !yield(entry, nil) {
				return
			}
		}
	}
}

type listingDecoder struct {
	r *csv.Reader
}

func newListingDecoder(r io.Reader) *listingDecoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &listingDecoder{r: cr}
}

// next возвращает следующий элемент. Строки, которые не разбираются как CSV,
// и строки неизвестного типа пропускаются.
func (d *listingDecoder) next() (remote.StorageAttributes, error) {
	for {
		row, err := d.r.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, err
		}
		if entry := decodeRow(row); entry != nil {
			return entry, nil
		}
	}
}

func decodeRow(row []string) remote.StorageAttributes {
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	lastModified := parseInt(col(colLastModified))
	switch remote.EntryType(col(colType)) {
	case remote.EntryFile:
		f := &remote.FileAttributes{
			Path:          col(colPath),
			Visibility:    remote.ParseVisibility(col(colVisibility)),
			FileSize:      parseInt(col(colFileSize)),
			MimeType:      col(colMimeType),
			ExtraMetadata: parseMetadata(col(colExtraMetadata)),
		}
		if lastModified != nil {
			f.LastModified = remote.UnixTime(*lastModified)
		}
		return f
	case remote.EntryDir:
		d := &remote.DirectoryAttributes{
			Path:          col(colPath),
			Visibility:    remote.ParseVisibility(col(colVisibility)),
			ExtraMetadata: parseMetadata(col(colExtraMetadata)),
		}
		if lastModified != nil {
			d.LastModified = remote.UnixTime(*lastModified)
		}
		return d
	default:
		return nil
	}
}

// parseInt возвращает nil для пустой или нечисловой колонки.
func parseInt(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseMetadata декодирует JSON-объект дополнительных метаданных.
func parseMetadata(s string) remote.Metadata {
	if s == "" {
		return nil
	}
	var m remote.Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}
