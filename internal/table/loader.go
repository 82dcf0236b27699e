package table

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Format names a supported source encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatJSON Format = "json"
)

// ParseFormat normalizes a user supplied format name. An empty name means auto.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatCSV, FormatXLSX, FormatXLS, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", name)
	}
}

// DetectFormat infers the format from the file extension. It returns an empty
// format when the extension is not recognized.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".json":
		return FormatJSON
	default:
		return ""
	}
}

// Loader produces snapshots from a source path.
type Loader interface {
	Load(ctx context.Context, path string, format Format) (*Snapshot, error)
}

// decodeFunc parses the file at path. Decoders read through openSource so a
// parse abandoned after ctx expires fails on its next read.
type decodeFunc func(ctx context.Context, path string) (*Snapshot, error)

const defaultLockRetry = 20 * time.Millisecond

// FileLoader reads tables from the local filesystem. While a file is parsed
// it holds a shared advisory lock on it, so writers that take an exclusive
// lock are never observed half way through a write.
type FileLoader struct {
	decoders  map[Format]decodeFunc
	lockRetry time.Duration
}

// NewFileLoader returns a loader for csv, xlsx, xls and json files.
func NewFileLoader() *FileLoader {
	return &FileLoader{
		decoders: map[Format]decodeFunc{
			FormatCSV:  decodeCSV,
			FormatXLSX: decodeXLSX,
			FormatXLS:  decodeXLS,
			FormatJSON: decodeJSON,
		},
		lockRetry: defaultLockRetry,
	}
}

// Load parses path as format. Every failure is a *LoadError.
func (l *FileLoader) Load(ctx context.Context, path string, format Format) (*Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if format == "" || format == FormatAuto {
		format = DetectFormat(path)
	}
	decode, ok := l.decoders[format]
	if !ok {
		return nil, newLoadError(KindUnsupportedFormat, path, fmt.Errorf("format %q", format))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newLoadError(KindSourceNotFound, path, err)
		}
		return nil, newLoadError(KindSourceNotFound, path, fmt.Errorf("stat: %w", err))
	}
	if info.IsDir() {
		return nil, newLoadError(KindSourceNotFound, path, fmt.Errorf("is a directory"))
	}

	lock := flock.New(path, flock.SetFlag(os.O_RDONLY))
	locked, err := lock.TryRLockContext(ctx, l.lockRetry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, newLoadError(KindTimeout, path, fmt.Errorf("acquire read lock: %w", ctxErr))
		}
		return nil, newLoadError(KindParseFailure, path, fmt.Errorf("acquire read lock: %w", err))
	}
	if !locked {
		return nil, newLoadError(KindTimeout, path, fmt.Errorf("read lock not acquired"))
	}

	type result struct {
		snap *Snapshot
		err  error
	}
	done := make(chan result, 1)
	// The decoder owns the read lock until it returns, even when Load has
	// already given up on it.
	go func() {
		defer lock.Unlock()
		var res result
		defer func() {
			if r := recover(); r != nil {
				res = result{err: fmt.Errorf("decoder panic: %v", r)}
			}
			done <- res
		}()
		res.snap, res.err = decode(ctx, path)
	}()

	select {
	case <-ctx.Done():
		return nil, newLoadError(KindTimeout, path, ctx.Err())
	case res := <-done:
		if res.err != nil {
			var le *LoadError
			if errors.As(res.err, &le) {
				return nil, le
			}
			return nil, newLoadError(KindParseFailure, path, res.err)
		}
		return res.snap, nil
	}
}

// ModTime returns the modification time of path. It is the default storage
// probe used by the cache.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
