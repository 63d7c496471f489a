package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/axonhq/axonmail/internal/blob"
)

// AttachmentHandler hands out short-lived signed download URLs for stored
// attachments.
type AttachmentHandler struct {
	blobs blob.Store
}

// NewAttachmentHandler creates a new AttachmentHandler instance.
func NewAttachmentHandler(blobs blob.Store) *AttachmentHandler {
	return &AttachmentHandler{blobs: blobs}
}

type attachmentURLRequest struct {
	Path string `json:"path"`
}

// SignedURL returns a download URL for the given storage path, valid for the
// short user-download window.
func (h *AttachmentHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	var req attachmentURLRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		WriteJSONError(w, http.StatusBadRequest, "path is required")
		return
	}
	// Object paths are namespaced flat keys. Reject traversal-looking input.
	if strings.Contains(req.Path, "..") {
		WriteJSONError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	url, err := h.blobs.SignedURL(req.Path, blob.DownloadURLValidity)
	if err != nil {
		log.Printf("AttachmentHandler: Failed to sign URL for %s: %v", req.Path, err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to create download URL")
		return
	}

	WriteJSONResponse(w, url)
}
