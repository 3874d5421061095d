package tailer

import (
	"context"
	"io"
	"log"

	"github.com/nxadm/tail"
)

// Options controls how a file is followed.
type Options struct {
	// Follow keeps reading after EOF, reopening rotated files.
	Follow bool
	// Poll uses polling instead of inotify; safer on Docker mounts.
	Poll bool
	// FromStart reads the whole file instead of starting at the end.
	FromStart bool
}

// TailFile sends each line of path to lines until ctx is done or, without
// Follow, the file ends. It closes nothing; the caller owns lines.
func TailFile(ctx context.Context, path string, opts Options, lines chan<- string) error {
	cfg := tail.Config{
		Follow:    opts.Follow,
		ReOpen:    opts.Follow,
		MustExist: !opts.Follow, // when following, wait for the file to appear
		Poll:      opts.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if !opts.FromStart && opts.Follow {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		log.Printf("Error tailing file %s: %v", path, err)
		return err
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Wait()
			}
			if line.Err != nil {
				log.Printf("Error reading line from %s: %v", path, line.Err)
				continue
			}
			select {
			case lines <- line.Text:
			case <-ctx.Done():
				_ = t.Stop()
				return nil
			}
		}
	}
}
