package video

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

var ErrUnsupportedType = errors.New("video: unsupported file type")

// SupportedTypes lists accepted upload content types.
var SupportedTypes = map[string]bool{
	"video/mp4":        true,
	"video/webm":       true,
	"video/quicktime":  true,
	"video/x-matroska": true,
	"video/x-msvideo":  true,
	"video/avi":        true,
	"video/mpeg":       true,
}

const sniffLen = 512

// DetectContentType sniffs the first bytes of r and rewinds it.
// It returns the detected type and whether it is an accepted video type.
func DetectContentType(r io.ReadSeeker) (string, bool, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}
	if n == 0 {
		return "application/octet-stream", false, nil
	}

	mime := sniff(buf[:n])
	return mime, SupportedTypes[mime], nil
}

func sniff(buf []byte) string {
	if len(buf) >= 12 && bytes.Equal(buf[4:8], []byte("ftyp")) {
		if bytes.Equal(buf[8:10], []byte("qt")) {
			return "video/quicktime"
		}
		return "video/mp4"
	}
	if len(buf) >= 4 && bytes.Equal(buf[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		if bytes.Contains(buf, []byte("webm")) {
			return "video/webm"
		}
		return "video/x-matroska"
	}
	if len(buf) >= 12 && bytes.Equal(buf[:4], []byte("RIFF")) && bytes.Equal(buf[8:12], []byte("AVI ")) {
		return "video/x-msvideo"
	}
	return http.DetectContentType(buf)
}
