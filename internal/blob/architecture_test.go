package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath   = "aligncore"
	driversRoot  = modulePath + "/internal/infra/blob"
	facadePrefix = modulePath + "/internal/blob"
)

// TestDriversOnlyReachedThroughFacade keeps the concrete blob drivers behind
// Open: stores and commands must hold a blob.Store, never a driver type.
func TestDriversOnlyReachedThroughFacade(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	violations := map[string]struct{}{}
	for _, pkg := range pkgs {
		if underPath(pkg.PkgPath, facadePrefix) || underPath(pkg.PkgPath, driversRoot) {
			continue
		}
		for imp := range pkg.Imports {
			if underPath(imp, driversRoot) {
				violations[pkg.PkgPath+" -> "+imp] = struct{}{}
			}
		}
	}
	if len(violations) == 0 {
		return
	}
	list := make([]string, 0, len(violations))
	for v := range violations {
		list = append(list, v)
	}
	sort.Strings(list)
	t.Fatalf("blob drivers imported outside %s:\n%s", facadePrefix, strings.Join(list, "\n"))
}

func underPath(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
