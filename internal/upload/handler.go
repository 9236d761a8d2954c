package upload

import (
	"bufio"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/imgrelay/service/internal/logging"
	"github.com/imgrelay/service/internal/response"
)

// FieldName is the multipart field carrying the image.
const FieldName = "image"

const sniffLen = 512

// Handler exposes a Pipeline over HTTP. It is also the multipart parsing
// step: the image part is streamed straight into the pipeline's temp dir.
type Handler struct {
	pipeline *Pipeline
	maxBytes int64
	log      logging.Logger
}

// NewHandler creates a Handler that accepts bodies up to maxBytes.
func NewHandler(p *Pipeline, maxBytes int64, log logging.Logger) *Handler {
	return &Handler{pipeline: p, maxBytes: maxBytes, log: log.With("profile", p.Profile().Name)}
}

// UploadImage godoc
//
//	@Summary		Upload an image
//	@Description	Resizes the uploaded image to fit the endpoint's bounding box, stores it remotely and returns its public URL.
//	@Tags			images
//	@Accept			mpfd
//	@Produce		json
//	@Param			image	formData	file	true	"Image file"
//	@Success		200		{object}	response.Upload
//	@Failure		400		{object}	response.Failure
//	@Failure		413		{object}	response.Failure
//	@Failure		500		{object}	response.Failure
//	@Router			/api/upload-image [post]
//	@Router			/api/images [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := h.receive(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.log.Warn(ctx, "upload rejected", "limit", tooLarge.Limit)
			response.TooLarge(w, "File too large")
		case errors.Is(err, ErrMissingFile):
			h.log.Info(ctx, "no file uploaded")
			response.BadRequest(w, "No file uploaded")
		default:
			h.log.Error(ctx, "receive failed", "error", err)
			response.InternalError(w, "Image upload failed", err.Error())
		}
		return
	}

	h.log.Info(ctx, "file received", "file", req.Filename, "size", req.Size, "content_type", req.ContentType)

	res, err := h.pipeline.Handle(ctx, req)
	if err != nil {
		if errors.Is(err, ErrMissingFile) {
			response.BadRequest(w, "No file uploaded")
			return
		}
		response.InternalError(w, "Image upload failed", err.Error())
		return
	}

	response.OK(w, response.Upload{
		Message:  "Image uploaded successfully",
		ImageURL: res.URL,
	})
}

// receive streams the first file part named FieldName into the temp dir.
// Nothing is written when the request carries no such part.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request) (*Request, error) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, stageError(ErrMissingFile, StageReceive, err)
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, stageError(ErrMissingFile, StageReceive, err)
		}
		if part.FormName() != FieldName || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		req, err := h.save(part)
		_ = part.Close()
		return req, err
	}
}

func (h *Handler) save(part *multipart.Part) (*Request, error) {
	filename := filepath.Base(part.FileName())
	br := bufio.NewReaderSize(part, sniffLen)

	head, _ := br.Peek(sniffLen)
	contentType := detectContentType(part.Header.Get("Content-Type"), head)

	path, size, err := h.pipeline.Dir().Save(br, filename)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, stageError(ErrReceiveFailed, StageReceive, fmt.Errorf("store upload: %w", err))
	}

	return &Request{
		Filename:    filename,
		Path:        path,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// detectContentType trusts the leading bytes when they identify an image and
// falls back to the part header, then to the sniffed type.
func detectContentType(header string, head []byte) string {
	sniffed := http.DetectContentType(head)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
		return header
	}
	return sniffed
}
