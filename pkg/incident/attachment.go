package incident

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// LoadAttachment reads the file at path and describes it. Files larger than
// maxBytes are described from their metadata only and not read into memory,
// so size checks can reject them without the cost of loading.
func LoadAttachment(path string, maxBytes int64) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("incident: stat attachment: %w", err)
	}
	if info.IsDir() {
		return Attachment{}, fmt.Errorf("incident: attachment %s is a directory", path)
	}

	a := Attachment{
		Name: filepath.Base(path),
		Size: info.Size(),
		Path: path,
	}
	if maxBytes > 0 && a.Size > maxBytes {
		a.MIMEType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		return a, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("incident: open attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Attachment{}, fmt.Errorf("incident: read attachment: %w", err)
	}
	a.Data = data
	a.MIMEType = detectMIME(a.Name, data)
	return a, nil
}

func detectMIME(name string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return http.DetectContentType(head)
}
