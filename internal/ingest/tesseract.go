package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os/exec"
	"strings"

	"kakeibo/internal/core"
)

// TextExtractor turns a receipt image into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, img []byte) (string, error)
}

// ErrUnsupportedImage is returned for bytes that are not a PNG or JPEG image.
var ErrUnsupportedImage = errors.New("image must be PNG or JPEG")

// ErrExtractorUnavailable reports that the OCR engine could not be run.
var ErrExtractorUnavailable = errors.New("text extractor unavailable")

// TesseractExtractor runs the tesseract CLI, feeding the image on stdin and
// reading text from stdout.
type TesseractExtractor struct {
	Path string
	Lang string
}

func NewTesseractExtractor(path, lang string) *TesseractExtractor {
	if path == "" {
		path = "tesseract"
	}
	return &TesseractExtractor{Path: path, Lang: lang}
}

// CheckImage verifies img decodes as a supported format and returns it.
func CheckImage(img []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", &core.ValidationError{Field: "image", Err: ErrUnsupportedImage}
	}
	return format, nil
}

func (t *TesseractExtractor) ExtractText(ctx context.Context, img []byte) (string, error) {
	if _, err := CheckImage(img); err != nil {
		return "", err
	}

	args := []string{"stdin", "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}
	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrExtractorUnavailable, msg)
	}
	return stdout.String(), nil
}
