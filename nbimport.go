// Package nbimport imports Jupyter notebooks written in Go as modules.
//
// Importing this package installs a notebook finder into the process-wide
// runtime. After that, Import("util") executes the code cells of
// ./util.ipynb into a fresh namespace and returns the module:
//
//	m, err := nbimport.Import("util")
//	if err != nil {
//		return err
//	}
//	z, _ := m.Namespace.Lookup("z")
//
// Cells whose source starts with "%" and cells tagged "noimport" are skipped.
// A module is loaded once per runtime; later imports return the registered
// module, including a partially populated one whose load failed.
package nbimport

import (
	"github.com/kingrea/nbimport/internal/bootstrap"
	"github.com/kingrea/nbimport/internal/runtime"
)

func init() {
	bootstrap.Init()
}

// Init installs the notebook finder into the process-wide runtime. It is safe
// to call repeatedly and is the hook worker pools call on start-up.
func Init() {
	bootstrap.Init()
}

// Default returns the process-wide runtime.
func Default() *runtime.Runtime {
	return bootstrap.Default()
}

// Import imports name through the process-wide runtime.
func Import(name string) (*runtime.Module, error) {
	return bootstrap.Default().Import(name)
}
