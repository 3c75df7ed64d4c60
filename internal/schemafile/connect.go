package schemafile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/contrib/httpapi"
)

// Connect connects every model of f to reg. Models are resolved
// concurrently; the first failure is returned.
func (f *File) Connect(ctx context.Context, reg *modelconnect.Registry) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range f.Models {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := reg.Connect(m.Type(), m.Options()); err != nil {
				return fmt.Errorf("model %s: %w", m.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Apply installs the file-level HTTP API settings.
func (f *File) Apply() {
	if f.BasePrefix != "" {
		httpapi.SetGlobalOptions(httpapi.GlobalOptions{BasePrefix: f.BasePrefix})
	}
}
