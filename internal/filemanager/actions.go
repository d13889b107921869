package filemanager

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// removeFile deletes path outright, grounded on file_manager.py's FpathRM.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("rm %s: %w", path, err)
	}
	return nil
}

// moveInto moves path into destDir, grounded on file_manager.py's FpathMV.
// It refuses to clobber an existing entry at the destination.
func moveInto(path, destDir string) error {
	dest := filepath.Join(destDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("mv %s: destination already exists: %s", path, dest)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("mv %s: %w", path, err)
	}
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("mv %s: %w", path, err)
	}
	return nil
}

// tarGzInto archives the directory at path into destDir/<base>.tar.gz,
// preserving the top-level directory name inside the archive, then removes
// the source directory. Grounded on file_manager.py's FpathTAR_GZ.
func tarGzInto(path, destDir string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("tar_gz %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("tar_gz %s: not a directory", path)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("tar_gz %s: %w", path, err)
	}

	tarDest := filepath.Join(destDir, filepath.Base(path)+".tar.gz")
	if err := writeTarGz(path, tarDest); err != nil {
		_ = os.Remove(tarDest)
		return fmt.Errorf("tar_gz %s: %w", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("tar_gz %s: archived but failed to remove source: %w", path, err)
	}
	return nil
}

func writeTarGz(srcDir, destFile string) error {
	f, err := os.Create(destFile)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	base := filepath.Base(srcDir)
	return filepath.Walk(srcDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		name := base
		if rel != "." {
			name = filepath.Join(base, rel)
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
}
