package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"example.com/fieldactivity/internal/domain"
)

const multipartMemory = 8 << 20

// writePayload is a decoded create/update request.
type writePayload struct {
	Fields  domain.Fields
	Uploads []domain.Upload
	files   []multipart.File
	form    *multipart.Form
}

// Close releases opened upload files and multipart temp files.
func (p *writePayload) Close() {
	for _, f := range p.files {
		_ = f.Close()
	}
	if p.form != nil {
		_ = p.form.RemoveAll()
	}
}

// decodeWrite accepts either a JSON object or a multipart form whose
// "attachments" (or "attachments[]") parts are files.
func (h *Handler) decodeWrite(w http.ResponseWriter, r *http.Request) (*writePayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return decodeMultipart(r)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("unable to parse form: %w", err)
		}
		return &writePayload{Fields: formFields(r.PostForm)}, nil
	default:
		return decodeJSON(r)
	}
}

func decodeJSON(r *http.Request) (*writePayload, error) {
	fields := domain.Fields{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.New("unable to parse body")
	}
	delete(fields, domain.FieldAttachments)
	return &writePayload{Fields: fields}, nil
}

func decodeMultipart(r *http.Request) (*writePayload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("unable to parse multipart body: %w", err)
	}
	payload := &writePayload{form: r.MultipartForm, Fields: formFields(r.MultipartForm.Value)}

	headers := append([]*multipart.FileHeader{}, r.MultipartForm.File[domain.FieldAttachments]...)
	headers = append(headers, r.MultipartForm.File[domain.FieldAttachments+"[]"]...)
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			payload.Close()
			return nil, fmt.Errorf("unable to open attachment %q: %w", fh.Filename, err)
		}
		payload.files = append(payload.files, f)
		payload.Uploads = append(payload.Uploads, domain.Upload{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return payload, nil
}

// formFields keeps the first value per key; form values are always strings.
func formFields(values map[string][]string) domain.Fields {
	fields := domain.Fields{}
	for key, vals := range values {
		if len(vals) == 0 || strings.HasPrefix(key, domain.FieldAttachments) {
			continue
		}
		fields[key] = vals[0]
	}
	return fields
}
