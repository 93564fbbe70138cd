package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/firecracker-bazel/internal/logger"
)

// errNotRegular is returned when a build output is a directory or device.
var errNotRegular = errors.New("not a regular file")

// Copier copies build outputs byte for byte, keeping their permission bits.
type Copier struct {
	// Progress enables a byte progress bar per file.
	Progress bool
	// ProgressWriter receives the progress bar; defaults to os.Stderr.
	ProgressWriter io.Writer
}

// Copy replaces dst with the contents of src.
// The new file is written next to dst and renamed over it, so a dst that is
// being executed is replaced instead of failing with "text file busy".
func (c *Copier) Copy(ctx context.Context, src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", src, errNotRegular)
	}

	var (
		mode = info.Mode().Perm()
		path = filepath.Clean(dst)
	)

	// Apply moves the current target aside before swapping, so it has to exist.
	if _, err = os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = createPlaceholder(path, mode); err != nil {
			return err
		}
	}

	bar := c.newBar(info.Size(), filepath.Base(path))

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
	}

	if err = goupdate.Apply(io.TeeReader(in, bar), options); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	_ = bar.Finish()

	removeLeftovers(path)

	// The mode passed to Apply is subject to the umask.
	if err = os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod destination: %w", err)
	}

	logger.DebugKV(ctx, "Copied artifact", "source", src, "destination", path, "bytes", info.Size())

	return nil
}

func createPlaceholder(path string, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}

	return nil
}

// removeLeftovers deletes the previous binary if Apply kept it around.
func removeLeftovers(path string) {
	dir, name := filepath.Split(path)

	for _, old := range []string{
		filepath.Join(dir, "."+name+".old"),
		path + ".old",
	} {
		if _, err := os.Stat(old); err == nil {
			_ = os.Remove(old)
		}
	}
}

func (c *Copier) newBar(size int64, description string) *progressbar.ProgressBar {
	if !c.Progress {
		return progressbar.NewOptions64(size, progressbar.OptionSetVisibility(false))
	}

	w := c.ProgressWriter
	if w == nil {
		w = os.Stderr
	}

	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(w, "\n")
		}),
	)
}
