package logger

import (
	"bytes"
	"io"
	"os"
)

// Tail returns the last n lines of the file at path without reading the whole
// file: it walks backwards in fixed-size chunks counting newlines.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return nil, nil
	}

	const chunk = 8 * 1024
	var buf []byte
	offset := size
	newlines := 0
	for offset > 0 && newlines <= n {
		step := int64(chunk)
		if offset < step {
			step = offset
		}
		offset -= step
		part := make([]byte, step)
		if _, err := f.ReadAt(part, offset); err != nil && err != io.EOF {
			return nil, err
		}
		buf = append(part, buf...)
		newlines = bytes.Count(buf, []byte{'\n'})
	}

	lines := bytes.Split(bytes.TrimRight(buf, "\n"), []byte{'\n'})
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, string(l))
	}
	return out, nil
}
