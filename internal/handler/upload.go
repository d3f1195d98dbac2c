package handler

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sniffLen = 512

var (
	dataURLPrefix = regexp.MustCompile(`^data:image/[a-z]+;base64,`)

	imageExtensions = map[string][]string{
		"image/jpeg": {".jpg", ".jpeg"},
		"image/png":  {".png"},
		"image/gif":  {".gif"},
		"image/webp": {".webp"},
	}
)

type base64Request struct {
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
}

func (h *Handler) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No file uploaded", "Please select an image file to upload")
	}
	if file.Size > h.upload.MaxSize {
		return fail(c, fiber.StatusBadRequest, "Upload failed", h.tooLarge())
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !h.allowedExt(ext) {
		return fail(c, fiber.StatusBadRequest, "Upload failed", "Only image files are allowed!")
	}

	src, err := file.Open()
	if err != nil {
		return h.serverError(c, err, "Upload failed")
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return h.serverError(c, err, "Upload failed")
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !h.allowedType(contentType) || !matchesType(ext, contentType) {
		return fail(c, fiber.StatusBadRequest, "Upload failed", "Only image files are allowed!")
	}

	name := h.uploadName(ext)
	body := io.MultiReader(bytes.NewReader(head), src)
	url, err := h.storage.Save(c.UserContext(), name, contentType, body, file.Size)
	if err != nil {
		return h.serverError(c, err, "Upload failed")
	}

	h.log.Info("Image uploaded", zap.String("filename", name), zap.Int64("size", file.Size))
	return ok(c, "Image uploaded successfully", fiber.Map{
		"filename":     name,
		"originalName": file.Filename,
		"size":         file.Size,
		"url":          url,
	})
}

func (h *Handler) UploadBase64(c *fiber.Ctx) error {
	var req base64Request
	if err := c.BodyParser(&req); err != nil || req.Base64 == "" {
		return fail(c, fiber.StatusBadRequest, "No base64 data provided", "Please provide base64 image data")
	}

	data, err := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(req.Base64, ""))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Upload failed", "Invalid base64 image data")
	}
	if int64(len(data)) > h.upload.MaxSize {
		return fail(c, fiber.StatusBadRequest, "Upload failed", h.tooLarge())
	}

	contentType := http.DetectContentType(data)
	if !h.allowedType(contentType) || len(imageExtensions[contentType]) == 0 {
		return fail(c, fiber.StatusBadRequest, "Upload failed", "Only image files are allowed!")
	}

	// The stored extension always follows the sniffed type; a supplied
	// filename may only pick among that type's extensions.
	ext := imageExtensions[contentType][0]
	if supplied := strings.ToLower(filepath.Ext(req.Filename)); supplied != "" {
		if !matchesType(supplied, contentType) {
			return fail(c, fiber.StatusBadRequest, "Upload failed", "Only image files are allowed!")
		}
		ext = supplied
	}

	name := h.uploadName(ext)
	url, err := h.storage.Save(c.UserContext(), name, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return h.serverError(c, err, "Upload failed")
	}

	h.log.Info("Base64 image uploaded", zap.String("filename", name), zap.Int("size", len(data)))
	return ok(c, "Base64 image uploaded successfully", fiber.Map{
		"filename": name,
		"url":      url,
	})
}

func (h *Handler) allowedType(contentType string) bool {
	return slices.Contains(h.upload.AllowedTypes, contentType)
}

func (h *Handler) allowedExt(ext string) bool {
	for _, t := range h.upload.AllowedTypes {
		if slices.Contains(imageExtensions[t], ext) {
			return true
		}
	}
	return false
}

func matchesType(ext, contentType string) bool {
	return slices.Contains(imageExtensions[contentType], ext)
}

func (h *Handler) tooLarge() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", h.upload.MaxSize/(1024*1024))
}

// uploadName is uuid-unixmillis.ext.
func (h *Handler) uploadName(ext string) string {
	return fmt.Sprintf("%s-%d%s", uuid.NewString(), h.now().UnixMilli(), ext)
}
