package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Fingerprint identifies one version of the rule file on disk.
type Fingerprint struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Digest  string    `json:"digest"`
}

func newFingerprint(path string, info os.FileInfo, data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Digest:  hex.EncodeToString(sum[:]),
	}
}

// Same reports whether both fingerprints describe identical content at the
// same path.
func (f Fingerprint) Same(other Fingerprint) bool {
	return f.Path == other.Path && f.Digest == other.Digest
}

// readWithFingerprint reads path and fingerprints what was read.
func readWithFingerprint(path string) ([]byte, Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, Fingerprint{}, err
	}
	if info.IsDir() {
		return nil, Fingerprint{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Fingerprint{}, err
	}
	return data, newFingerprint(path, info, data), nil
}

// changedSince reports whether the file at prev.Path differs from prev.
// Size and mtime are compared first; the digest settles touch-only writes.
func changedSince(prev Fingerprint) (bool, error) {
	info, err := os.Stat(prev.Path)
	if err != nil {
		return true, err
	}
	if info.Size() == prev.Size && info.ModTime().Equal(prev.ModTime) {
		return false, nil
	}
	_, cur, err := readWithFingerprint(prev.Path)
	if err != nil {
		return true, err
	}
	return !cur.Same(prev), nil
}
