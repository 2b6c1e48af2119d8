package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// DownloadImage fetches the image found at url into a temporary file,
// rewound to its start. The caller is responsible for closing and removing the file.
func DownloadImage(ctx context.Context, url string) (*os.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URI %s: %w", url, err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download image file from URI: %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to download image file from URI: %s, status %v", url, res.Status)
	}

	body := bufio.NewReaderSize(res.Body, sniffLen)
	if ctype := ContentType(body); !strings.HasPrefix(ctype, "image/") {
		return nil, fmt.Errorf("the downloaded file is not a valid image type: %s", ctype)
	}

	tmpfile, err := os.CreateTemp("", "haarface-*")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary file: %w", err)
	}
	cleanup := func() {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
	}

	if _, err := io.Copy(tmpfile, body); err != nil {
		cleanup()
		return nil, fmt.Errorf("unable to copy the source URI into the destination file: %w", err)
	}
	if _, err := tmpfile.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, err
	}
	return tmpfile, nil
}

// IsValidUrl tests a string to determine if it is a well-structured url or not.
func IsValidUrl(uri string) bool {
	if _, err := url.ParseRequestURI(uri); err != nil {
		return false
	}
	u, err := url.Parse(uri)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ContentType sniffs the MIME type of the buffered content without consuming it.
// It falls back to "application/octet-stream".
func ContentType(r *bufio.Reader) string {
	head, _ := r.Peek(sniffLen)
	return http.DetectContentType(head)
}
