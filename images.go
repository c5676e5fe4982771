package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"bootcamps/pkg/apperr"
	"bootcamps/pkg/imageproc"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

const (
	maxCoverBytes  = 5_000_000
	maxAvatarBytes = 1_000_000
)

// imageUpload describes one multipart image field and how it is stored.
type imageUpload struct {
	field    string
	maxBytes int64
	dir      string
	width    int
	height   int
}

var (
	coverUpload  = imageUpload{"imageCover", maxCoverBytes, "bootcamps", imageproc.CoverWidth, imageproc.CoverHeight}
	avatarUpload = imageUpload{"avatar", maxAvatarBytes, "users", imageproc.AvatarWidth, imageproc.AvatarHeight}
)

// save validates the uploaded file, resizes it to PNG and stores it under the
// upload base. It returns the path relative to that base.
func (u imageUpload) save(c *gin.Context) (string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, u.maxBytes+64<<10)
	fh, err := c.FormFile(u.field)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", apperr.Validation(fmt.Sprintf("Image is too large (max %d bytes)", u.maxBytes))
		}
		return "", apperr.Validation("Please select an image to upload")
	}
	if fh.Size > u.maxBytes {
		return "", apperr.Validation(fmt.Sprintf("Image is too large (max %d bytes)", u.maxBytes))
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return "", apperr.Validation("Not an image! Please upload only images.")
	}
	f, err := fh.Open()
	if err != nil {
		return "", apperr.Internal("open upload", err)
	}
	defer f.Close()

	rel := filepath.Join(u.dir, ksuid.New().String()+".png")
	if err := imageproc.SavePNG(uploadBaseDir(), rel, f, u.width, u.height); err != nil {
		if errors.Is(err, imageproc.ErrUnsupported) {
			return "", apperr.Validation("Not an image! Please upload only images.")
		}
		return "", apperr.Internal("store image", err)
	}
	return rel, nil
}

// serveImage streams a stored PNG or answers 404 with msg.
func serveImage(c *gin.Context, rel, msg string) {
	if rel == "" {
		respondError(c, apperr.NotFound(msg))
		return
	}
	path := filepath.Join(uploadBaseDir(), rel)
	if _, err := os.Stat(path); err != nil {
		respondError(c, apperr.NotFound(msg))
		return
	}
	c.Header("Content-Type", "image/png")
	c.File(path)
}

// removeImage deletes a stored image; a failure only leaves an orphan file.
func removeImage(rel string) {
	if err := imageproc.Remove(uploadBaseDir(), rel); err != nil {
		logger.Sugar().Warnf("remove image %s: %v", rel, err)
	}
}
