// Package profile manages the persistent Chrome profile directory that
// keeps the site's login and cookie state across sessions, including
// tar.gz snapshots for backing up a working logged-in profile.
package profile

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// chromeLockFiles are left behind when Chrome crashes; it refuses to start
// over them.
var chromeLockFiles = []string{
	"SingletonLock",
	"SingletonCookie",
	"SingletonSocket",
}

// Manager owns one profile directory and its snapshot store.
type Manager struct {
	dir         string
	snapshotDir string
}

func NewManager(dir, snapshotDir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve profile dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Manager{dir: abs, snapshotDir: snapshotDir}, nil
}

// Dir returns the absolute profile directory path.
func (m *Manager) Dir() string { return m.dir }

// Prepare makes the profile directory launchable: ensures it exists and
// removes stale singleton locks from crashed sessions.
func (m *Manager) Prepare() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	for _, name := range chromeLockFiles {
		lockPath := filepath.Join(m.dir, name)
		if _, err := os.Lstat(lockPath); err != nil {
			continue
		}
		if err := os.Remove(lockPath); err != nil {
			log.Warn("profile: failed to remove stale lock", "file", lockPath, "error", err)
		} else {
			log.Info("profile: removed stale lock", "file", lockPath)
		}
	}
	return nil
}

// Snapshot archives the profile directory into the snapshot store and
// returns the archive path.
func (m *Manager) Snapshot() (string, error) {
	name := fmt.Sprintf("profile-%s.tar.gz", time.Now().Format("20060102-150405"))
	archivePath := filepath.Join(m.snapshotDir, name)

	if err := compressDirectory(m.dir, archivePath); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("snapshot profile: %w", err)
	}

	log.Info("profile: snapshot written", "archive", archivePath)
	return archivePath, nil
}

// Restore extracts an archive over the profile directory. An empty archive
// path means the most recent snapshot.
func (m *Manager) Restore(archivePath string) error {
	if archivePath == "" {
		latest, err := m.LatestSnapshot()
		if err != nil {
			return err
		}
		archivePath = latest
	}

	if err := extractDirectory(archivePath, m.dir); err != nil {
		return fmt.Errorf("restore profile: %w", err)
	}

	log.Info("profile: restored", "archive", archivePath)
	return nil
}

// LatestSnapshot returns the newest archive in the snapshot store.
func (m *Manager) LatestSnapshot() (string, error) {
	matches, err := filepath.Glob(filepath.Join(m.snapshotDir, "profile-*.tar.gz"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no profile snapshots in %s", m.snapshotDir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// compressDirectory creates a tar.gz archive of a directory. Sockets and
// other irregular files (Chrome leaves a few) are skipped.
func compressDirectory(source, target string) error {
	file, err := os.Create(target)
	if err != nil {
		return err
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, info.Name())
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		header.Name = relPath

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tarWriter, f)
		return err
	})
}

// extractDirectory extracts a tar.gz archive into a directory.
func extractDirectory(source, target string) error {
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		targetPath := filepath.Join(target, filepath.Clean(header.Name))

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return err
			}
			outFile, err := os.Create(targetPath)
			if err != nil {
				return err
			}
			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return err
			}
			outFile.Close()
		}
	}
	return nil
}
