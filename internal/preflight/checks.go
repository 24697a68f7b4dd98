package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"imfpack/internal/digest"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is a writable directory or can be
// created under its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := existingAncestor(path)
	res := CheckDirectoryAccess(name, parent)
	if res.Passed {
		res.Detail = fmt.Sprintf("%s (will be created under %s)", path, parent)
	}
	return res
}

// CheckFreeSpace verifies the filesystem holding path has at least required
// bytes available to unprivileged users.
func CheckFreeSpace(name, path string, required int64) Result {
	target := existingAncestor(path)
	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", target, err)}
	}
	available := int64(st.Bavail) * int64(st.Bsize)
	if available < required {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s free, %s needed)", target, formatBytes(available), formatBytes(required))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", target, formatBytes(available))}
}

// CheckDigest verifies the packing list hash is linked into the binary.
func CheckDigest() Result {
	const name = "Digest algorithm"
	if _, err := digest.New(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: digest.Algorithm.String()}
}

func existingAncestor(path string) string {
	dir := filepath.Clean(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
