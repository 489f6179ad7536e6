package utils

import (
	"io"
	"net/http"
)

const copyBufLen = 32 * 1024

// FlushCopy streams reader contents to an HTTP response as they arrive,
// flushing after every chunk so clients see media bytes immediately instead
// of waiting for internal buffers to fill. Returns the number of bytes
// written to the response.
func FlushCopy(w http.ResponseWriter, r io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buffer := make([]byte, copyBufLen)

	var written int64
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			i, werr := w.Write(buffer[:n])
			written += int64(i)
			if werr != nil {
				return written, werr
			}

			if flusher != nil {
				flusher.Flush()
			}
		}

		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}
