package sqlitefile

import (
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// OpenFile opens the database read-only. With useMmap the file is mapped
// into memory and pages are copied out of the mapping.
func OpenFile(path string, useMmap bool) (DBFile, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%s is a directory", path)
	}

	// Empty files cannot be mapped, the header check rejects them anyway.
	if !useMmap || info.Size() == 0 {
		return f, info.Size(), nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &mmapFile{file: f, data: data}, info.Size(), nil
}

type mmapFile struct {
	file *os.File
	data mmap.MMap
}

func (m *mmapFile) ReadAt(p []byte, off int64) (int, error) {
	if m.data == nil {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	err := m.data.Unmap()
	m.data = nil
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}
