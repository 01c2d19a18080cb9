package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"kiln/internal/manifest"
)

// minFreeBytes is the least free space the cache volume needs before a run
// is worth starting. Dependency trees for a large workspace easily exceed
// this, but below it a build is certain to fail mid-flight.
const minFreeBytes = 1 << 30

// CheckBinary verifies that the named command resolves on PATH.
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
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

// CheckFreeSpace verifies that the filesystem holding path has room for at
// least one dependency build.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%.1f GiB free", float64(free)/float64(1<<30))
	if free < minFreeBytes {
		return Result{Name: name, Detail: detail + " (below 1 GiB minimum)"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckWorkspace verifies that the workspace root is readable and carries a
// root manifest and lockfile.
func CheckWorkspace(name, root string) Result {
	if strings.TrimSpace(root) == "" {
		return Result{Name: name, Detail: "workspace root not configured"}
	}
	if err := unix.Access(root, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", root, err)}
	}
	for _, file := range []string{manifest.ManifestName, manifest.LockfileName} {
		if _, err := os.Stat(filepath.Join(root, file)); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing %s)", root, file)}
		}
	}
	return Result{Name: name, Passed: true, Detail: root}
}
