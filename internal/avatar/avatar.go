// Package avatar processes uploaded profile images into the stored format:
// a 250x250 PNG, whatever came in.
package avatar

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/taskly/taskly-be/internal/apperror"
)

// MaxUploadSize is the pre-resize cap on uploaded files, in bytes.
const MaxUploadSize = 1000000

// canvasSize is the fixed side length of the stored image.
const canvasSize = 250

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Process validates an uploaded image and converts it to the stored form.
// The file extension must be jpg, jpeg or png and the declared size must
// not exceed MaxUploadSize. The result is always a 250x250 PNG; larger or
// smaller inputs are center-cropped and scaled to fill the canvas.
func Process(filename string, size int64, file io.Reader) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, apperror.NewValidation("File must be a image jpg or png")
	}
	if size > MaxUploadSize {
		return nil, apperror.NewValidation("File is too large")
	}

	img, err := imaging.Decode(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, apperror.NewValidation("Could not process the image")
	}

	resized := imaging.Fill(img, canvasSize, canvasSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, apperror.NewValidation("Could not process the image")
	}
	return buf.Bytes(), nil
}
