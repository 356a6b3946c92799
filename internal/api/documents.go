// CLAUDE:SUMMARY Document upload/list/delete handlers — multipart intake, disk storage via storage.Store, item-scoped records
package api

import (
	"errors"
	"net/http"
	"path"

	"github.com/prajwalreddypr/Expat-Ease/internal/db"
	"github.com/prajwalreddypr/Expat-Ease/internal/storage"
)

func (a *API) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid item id", http.StatusBadRequest)
		return
	}
	// Ownership is checked up front so a rejected upload never hits the disk.
	if _, err := a.db.GetProgressItem(claims.UserID, itemID); err != nil {
		dbError(w, err, "checking item for upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.store.MaxSize()+64*1024)
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !storage.ValidContentType(contentType) {
		jsonError(w, "only PDF and image files are allowed", http.StatusBadRequest)
		return
	}

	relPath, filename, size, err := a.store.Save(claims.UserID, contentType, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidType):
			jsonError(w, "only PDF and image files are allowed", http.StatusBadRequest)
		case errors.Is(err, storage.ErrTooLarge):
			jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
		default:
			dbError(w, err, "storing upload")
		}
		return
	}

	doc, err := a.db.CreateDocument(db.CreateDocumentInput{
		ItemID:           itemID,
		UserID:           claims.UserID,
		Filename:         filename,
		OriginalFilename: header.Filename,
		FilePath:         relPath,
		FileSize:         size,
		ContentType:      contentType,
	})
	if err != nil {
		// The record failed after the file landed; clean the orphan up.
		_ = a.store.Remove(relPath)
		dbError(w, err, "recording document")
		return
	}
	doc.DownloadURL = path.Join("/uploads", doc.FilePath)
	a.auditEvent("upload_document", claims.UserID, map[string]int64{"item_id": itemID, "document_id": doc.ID}, nil)
	jsonResp(w, http.StatusCreated, doc)
}

func (a *API) handleGetItemDocuments(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid item id", http.StatusBadRequest)
		return
	}
	docs, err := a.db.GetItemDocuments(itemID, claims.UserID)
	if err != nil {
		dbError(w, err, "listing documents")
		return
	}
	for _, d := range docs {
		d.DownloadURL = path.Join("/uploads", d.FilePath)
	}
	jsonResp(w, http.StatusOK, docs)
}

func (a *API) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	filePath, err := a.db.DeleteDocument(id, claims.UserID)
	if err != nil {
		dbError(w, err, "deleting document")
		return
	}
	if err := a.store.Remove(filePath); err != nil {
		// The record is gone; a leftover file is only a disk-space leak.
		dbError(w, err, "removing stored file")
		return
	}
	a.auditEvent("delete_document", claims.UserID, map[string]int64{"document_id": id}, nil)
	jsonResp(w, http.StatusOK, map[string]string{"message": "deleted"})
}
