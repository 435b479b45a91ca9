package database

import (
	"errors"
	"sync"
)

// ErrNotInitialized is returned when no storage backend has been registered.
var ErrNotInitialized = errors.New("face store not initialized: DATABASE_URL or MARIADB_DSN is required")

var (
	backendMu   sync.RWMutex
	faceWriter  func() FaceWriter
	backendName string
)

// RegisterFaceBackend registers the face repository constructor of a backend.
// This is called by the postgres and mariadb packages to avoid import cycles.
func RegisterFaceBackend(name string, writer func() FaceWriter) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = name
	faceWriter = writer
}

// ResetBackend forgets the registered backend.
func ResetBackend() {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = ""
	faceWriter = nil
}

// IsInitialized returns whether a storage backend has been registered.
func IsInitialized() bool {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return faceWriter != nil
}

// BackendName returns the name of the registered backend.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}

// GetFaceReader returns a FaceReader from the registered backend
func GetFaceReader() (FaceReader, error) {
	return GetFaceWriter()
}

// GetFaceWriter returns a FaceWriter from the registered backend
func GetFaceWriter() (FaceWriter, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if faceWriter == nil {
		return nil, ErrNotInitialized
	}
	return faceWriter(), nil
}
