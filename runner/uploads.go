package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"

	"github.com/Laisky/errors/v2"
)

type uploadFile struct {
	field string
	file  *os.File
}

// openUploads acquires every declared upload file up front. When any open
// fails, the ones already opened are closed before returning so a partial
// acquisition never leaks descriptors.
func openUploads(declared map[string]string) ([]uploadFile, error) {
	fields := make([]string, 0, len(declared))
	for field := range declared {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	files := make([]uploadFile, 0, len(fields))
	for _, field := range fields {
		f, err := os.Open(declared[field])
		if err != nil {
			closeUploads(files)
			return nil, errors.Wrapf(err, "open upload %q", declared[field])
		}
		files = append(files, uploadFile{field: field, file: f})
	}
	return files, nil
}

func closeUploads(files []uploadFile) {
	for _, uf := range files {
		_ = uf.file.Close()
	}
}

// multipartBody renders the merged params as multipart form fields alongside
// the upload files. Scalar params become plain fields, composite params are
// JSON-encoded.
func multipartBody(params map[string]any, files []uploadFile) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, err := formValue(params[name])
		if err != nil {
			return nil, "", errors.Wrapf(err, "encode param %q", name)
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", errors.Wrapf(err, "write param %q", name)
		}
	}

	for _, uf := range files {
		part, err := writer.CreateFormFile(uf.field, filepath.Base(uf.file.Name()))
		if err != nil {
			return nil, "", errors.Wrapf(err, "create form file %q", uf.field)
		}
		if _, err := io.Copy(part, uf.file); err != nil {
			return nil, "", errors.Wrapf(err, "copy upload %q", uf.field)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", errors.Wrap(err, "finalize multipart body")
	}
	return buf, writer.FormDataContentType(), nil
}

func formValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", v), nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}
