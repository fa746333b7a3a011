package blob

import (
	"context"
	"fmt"
)

// Options selects and configures a blob.Store implementation.
type Options struct {
	Driver Driver
	// Root is the directory documents live under when Driver is fs.
	Root string
	S3   S3Config
}

// Open constructs the blob.Store selected by opts.Driver (default fs).
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(opts.Root)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
