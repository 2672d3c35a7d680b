package main

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/imagepath"
	"github.com/shape-portfolio/site/internal/store"
)

var allowedImageTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeFileName reduces an uploaded name to a plain file name and forces ext.
func safeFileName(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = uuid.NewString()[:8]
	}
	return name + ext
}

// projectUploadDir is the on-disk folder that backs imagepath.ProjectDir.
func (s *server) projectUploadDir(id int64) string {
	rel := strings.TrimPrefix(imagepath.ProjectDir(id), imagepath.Root+"/")
	return filepath.Join(s.cfg.Uploads.Dir, filepath.FromSlash(rel))
}

// saveUpload sniffs fh, checks it against allowed and writes it into the
// project's folder. It returns the web path of the stored file.
func (s *server) saveUpload(c *gin.Context, id int64, fh *multipart.FileHeader, allowed map[string]string) (string, error) {
	if fh.Size > s.cfg.Uploads.MaxFileSize {
		return "", fmt.Errorf("%s is larger than %d bytes", fh.Filename, s.cfg.Uploads.MaxFileSize)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	mt, err := mimetype.DetectReader(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", fh.Filename, err)
	}

	ext := ""
	for m, e := range allowed {
		if mt.Is(m) {
			ext = e
			break
		}
	}
	if ext == "" {
		return "", fmt.Errorf("%s has unsupported type %s", fh.Filename, mt.String())
	}

	dir := s.projectUploadDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload folder: %w", err)
	}
	name := safeFileName(fh.Filename, ext)
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
		name = strings.TrimSuffix(name, ext) + "-" + uuid.NewString()[:8] + ext
	}
	if err := c.SaveUploadedFile(fh, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("saving %s: %w", fh.Filename, err)
	}
	return imagepath.ProjectDir(id) + "/" + name, nil
}

// handleUploadImages stores multipart "files" in the project folder and
// appends them to the project's images.
func (s *server) handleUploadImages(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, "Project", err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		respondError(c, http.StatusBadRequest, "No files uploaded")
		return
	}
	files := form.File["files"]
	if len(p.Images)+len(files) > imagepath.MaxImages {
		respondError(c, http.StatusBadRequest, store.ErrTooManyImages.Error())
		return
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := s.saveUpload(c, id, fh, allowedImageTypes)
		if err != nil {
			s.removeUploads(paths)
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		paths = append(paths, path)
	}

	p, err = s.store.AppendProjectImages(c.Request.Context(), id, paths)
	if err != nil {
		s.removeUploads(paths)
		s.storeError(c, "Project", err)
		return
	}
	s.log.Info("project images uploaded", zap.Int64("project_id", id), zap.Int("count", len(paths)))
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p, "uploaded": paths})
}

// handleUploadReport stores a PDF report for the project.
func (s *server) handleUploadReport(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), id); err != nil {
		s.storeError(c, "Project", err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	path, err := s.saveUpload(c, id, fh, map[string]string{"application/pdf": ".pdf"})
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.SetProjectReport(c.Request.Context(), id, path)
	if err != nil {
		s.removeUploads([]string{path})
		s.storeError(c, "Project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

// removeUploads deletes files written for a request that then failed.
func (s *server) removeUploads(paths []string) {
	for _, p := range paths {
		rel := strings.TrimPrefix(p, imagepath.Root+"/")
		if err := os.Remove(filepath.Join(s.cfg.Uploads.Dir, filepath.FromSlash(rel))); err != nil {
			s.log.Warn("removing orphaned upload", zap.String("path", p), zap.Error(err))
		}
	}
}
