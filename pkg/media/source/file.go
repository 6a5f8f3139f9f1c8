package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
)

// FileFetcher reads file:// locators and bare paths.
//
// When Root is set, relative paths resolve under it and absolute paths
// must stay inside it.
type FileFetcher struct {
	Root string
}

// Fetch implements Fetcher.
func (f FileFetcher) Fetch(ctx context.Context, locator string, r Range) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.resolve(locator)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", locator, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", locator, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat %s: %w", locator, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("%s is a directory: %w", locator, ErrNotFound)
	}

	var body io.ReadCloser = file
	if !r.IsZero() {
		length := r.Length
		if length <= 0 {
			length = info.Size() - r.Offset
		}
		body = limitedReadCloser{
			Reader: io.NewSectionReader(file, r.Offset, max(length, 0)),
			Closer: file,
		}
	}

	return &Object{
		Body:        &ctxReadCloser{ctx: ctx, ReadCloser: body},
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        info.Size(),
	}, nil
}

func (f FileFetcher) resolve(locator string) (string, error) {
	path := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	if path == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}

	if f.Root == "" {
		return filepath.Clean(path), nil
	}

	root, err := filepath.Abs(f.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || (len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes root", ErrInvalidLocator, locator)
	}
	return path, nil
}

// ctxReadCloser stops reading once ctx is done.
type ctxReadCloser struct {
	ctx context.Context
	io.ReadCloser
}

func (r *ctxReadCloser) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.ReadCloser.Read(p)
}
