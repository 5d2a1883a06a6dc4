package sqlmap

import (
	"io"

	"github.com/gogf/gf/errors/gerror"

	"github.com/ayiyaha-hyd/sqlmap/internal/resource"
)

// LoadMapperResources discovers every ".xml" file under root (a plain
// directory or a zip/jar-style archive, detected by resource.IsArchive) and
// loads each one as a mapper document, mirroring MyBatis' own
// classpath-package mapper scanning. Call before Finish.
func (c *Configuration) LoadMapperResources(root string) error {
	entries, err := resource.List(root, ".xml")
	if err != nil {
		return gerror.Wrap(err, "sqlmap: list mapper resources under "+root)
	}
	for _, e := range entries {
		if err := c.loadMapperEntry(e); err != nil {
			return gerror.Wrap(err, "sqlmap: load mapper resource "+e.Name)
		}
	}
	return nil
}

func (c *Configuration) loadMapperEntry(e resource.Entry) error {
	rc, err := e.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return c.LoadMapperXML(data)
}
