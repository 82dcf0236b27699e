package table

import (
	"context"
	"os"
)

// sourceFile is an open table file whose reads fail once ctx is done. A
// decoder that outlives its load deadline stops at the next read instead of
// parsing the rest of the file.
type sourceFile struct {
	ctx  context.Context
	file *os.File
}

func openSource(ctx context.Context, path string) (*sourceFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &sourceFile{ctx: ctx, file: file}, nil
}

func (s *sourceFile) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	return s.file.Read(p)
}

func (s *sourceFile) ReadAt(p []byte, off int64) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	return s.file.ReadAt(p, off)
}

func (s *sourceFile) Seek(offset int64, whence int) (int64, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	return s.file.Seek(offset, whence)
}

func (s *sourceFile) Close() error {
	return s.file.Close()
}
