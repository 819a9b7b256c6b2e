// internal/app/system/formutil/formutil.go

// Package formutil decodes submissions that may carry an image.
//
// A submission is either a plain JSON body, or multipart/form-data with the
// same JSON in the "data" field and an optional file in the "image" field:
//
//	img, err := formutil.Decode(w, r, &req, h.MaxUpload)
//	if err != nil { ... }
//	if img != nil {
//		defer img.Close()
//		url, err := h.Blob.Upload(ctx, img.Filename, img.ContentType, img.File, img.Size)
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dalemusser/fieldhub/internal/app/system/limits"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
)

const (
	DataField  = "data"
	ImageField = "image"
	FilesField = "files"
)

// Image is the uploaded file of a multipart submission.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	File        multipart.File
}

// Close releases the file.
func (i *Image) Close() error {
	if i == nil || i.File == nil {
		return nil
	}
	return i.File.Close()
}

// IsMultipart reports whether r carries multipart/form-data.
func IsMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// Decode fills v from r. The returned Image is nil when the submission has
// no image. Every failure is a Malformed outcome.
func Decode(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) (*Image, error) {
	if !IsMultipart(r) {
		return nil, respond.Decode(w, r, v, limits.MaxJSONBody)
	}

	if err := parse(w, r, maxBytes); err != nil {
		return nil, err
	}

	data := r.FormValue(DataField)
	if strings.TrimSpace(data) == "" {
		return nil, outcome.Malformed("request.upload", "multipart submissions carry their JSON in the %q field", DataField)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return nil, outcome.Malformed("request.upload", "invalid JSON in %q: %v", DataField, err)
	}

	f, hdr, err := r.FormFile(ImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, outcome.Malformed("request.upload", "read image: %v", err)
	}
	return checkImage(f, hdr)
}

// Files returns every image in the multipart field. At least one is
// required, and each must sniff as an image. On success the caller closes
// them with CloseAll.
func Files(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]*Image, error) {
	if !IsMultipart(r) {
		return nil, outcome.Malformed("request.upload", "expected multipart/form-data")
	}
	if err := parse(w, r, maxBytes); err != nil {
		return nil, err
	}

	hdrs := r.MultipartForm.File[field]
	if len(hdrs) == 0 {
		return nil, outcome.Malformed("request.upload", "no files in %q", field)
	}
	imgs := make([]*Image, 0, len(hdrs))
	for _, hdr := range hdrs {
		f, err := hdr.Open()
		if err != nil {
			CloseAll(imgs)
			return nil, outcome.Malformed("request.upload", "read %s: %v", hdr.Filename, err)
		}
		img, err := checkImage(f, hdr)
		if err != nil {
			CloseAll(imgs)
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

// CloseAll closes every image.
func CloseAll(imgs []*Image) {
	for _, img := range imgs {
		img.Close()
	}
}

func parse(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(limits.MultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return outcome.Malformed("request.upload", "upload exceeds %d MB", tooBig.Limit>>20)
		}
		return outcome.Malformed("request.upload", "invalid multipart body: %v", err)
	}
	return nil
}

// checkImage sniffs f and closes it unless it is an image.
func checkImage(f multipart.File, hdr *multipart.FileHeader) (*Image, error) {
	ct, err := sniff(f)
	if err != nil {
		f.Close()
		return nil, outcome.Malformed("request.upload", "read %s: %v", hdr.Filename, err)
	}
	if !strings.HasPrefix(ct, "image/") {
		f.Close()
		return nil, outcome.Malformed("request.upload", "%s must be an image file, got %s", hdr.Filename, ct)
	}
	return &Image{Filename: hdr.Filename, ContentType: ct, Size: hdr.Size, File: f}, nil
}

// sniff detects the content type from the first bytes and rewinds.
func sniff(f multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
