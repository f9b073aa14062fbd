package vfs

import "bytes"

// ReadHandle is returned by OpenRead; it is a snapshot, not a live view.
type ReadHandle struct {
	*bytes.Reader
}

// OpenRead opens path for reading (spec.md §6 open_read).
func (fs *FS) OpenRead(path string) (*ReadHandle, error) {
	b, err := fs.Read(path)
	if err != nil {
		return nil, err
	}
	return &ReadHandle{Reader: bytes.NewReader(b)}, nil
}

// WriteHandle buffers writes and flushes them back to the VFS on Close.
type WriteHandle struct {
	fs     *FS
	path   string
	append bool
	buf    bytes.Buffer
}

func (w *WriteHandle) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *WriteHandle) Close() error {
	if w.append {
		return w.fs.Append(w.path, w.buf.Bytes())
	}
	return w.fs.Write(w.path, w.buf.Bytes())
}

// OpenWrite opens path for writing, buffering until Close (spec.md §6
// open_write). Writes are atomic at the file level from the caller's
// perspective, which a buffer-then-flush-on-close strategy gives for free.
func (fs *FS) OpenWrite(path string, appendMode bool) (*WriteHandle, error) {
	return &WriteHandle{fs: fs, path: path, append: appendMode}, nil
}
