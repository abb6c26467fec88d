package location

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

// File is a file-like request value. Any File anywhere inside visit data
// switches the request body to multipart form data.
type File struct {
	Name        string
	ContentType string
	Data        []byte

	// Reader, when set, is streamed instead of Data.
	Reader io.Reader
}

// NewFile returns a File holding data in memory.
func NewFile(name, contentType string, data []byte) *File {
	return &File{Name: name, ContentType: contentType, Data: data}
}

// OpenFile returns a File streaming the named file from disk.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{Name: filepath.Base(path), Reader: f}, nil
}

func (f *File) open() io.Reader {
	if f.Reader != nil {
		return f.Reader
	}
	return bytes.NewReader(f.Data)
}

// HasFiles reports whether data contains a File at any depth.
func HasFiles(data any) bool {
	switch data.(type) {
	case nil:
		return false
	case File, *File, *os.File:
		return true
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if HasFiles(iter.Value().Interface()) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if HasFiles(rv.Index(i).Interface()) {
				return true
			}
		}
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			return HasFiles(rv.Elem().Interface())
		}
	}
	return false
}

// Body is an encoded request body.
type Body struct {
	// Method is the HTTP method to put on the wire. Multipart bodies are
	// always sent as POST with the intended method in a _method field.
	Method string

	ContentType string
	Data        []byte
}

// EncodeBody encodes non-GET visit data. Data containing files, or any data
// when forceFormData is set, becomes multipart form data; everything else
// is sent as JSON.
func EncodeBody(data any, method string, format ArrayFormat, forceFormData bool) (Body, error) {
	method = strings.ToUpper(method)
	if forceFormData || HasFiles(data) {
		return encodeMultipart(data, method, format)
	}
	if data == nil {
		return Body{Method: method}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Body{}, fmt.Errorf("encode request body: %w", err)
	}
	return Body{Method: method, ContentType: "application/json", Data: raw}, nil
}

func encodeMultipart(data any, method string, format ArrayFormat) (Body, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range Flatten(data, format) {
		if err := writeField(w, p); err != nil {
			return Body{}, err
		}
	}
	if err := w.WriteField("_method", method); err != nil {
		return Body{}, err
	}
	if err := w.Close(); err != nil {
		return Body{}, err
	}
	return Body{
		Method:      http.MethodPost,
		ContentType: w.FormDataContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func writeField(w *multipart.Writer, p Pair) error {
	var file *File
	switch v := p.Value.(type) {
	case File:
		file = &v
	case *File:
		file = v
	case *os.File:
		file = &File{Name: filepath.Base(v.Name()), Reader: v}
	case bool:
		value := "0"
		if v {
			value = "1"
		}
		return w.WriteField(p.Key, value)
	default:
		return w.WriteField(p.Key, Stringify(p.Value))
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(p.Key), escapeQuotes(file.Name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.open()); err != nil {
		return fmt.Errorf("write file %q: %w", file.Name, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
