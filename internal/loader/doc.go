// Package loader imports notebooks as modules. A Finder appended to a
// runtime's chain claims a module name when "<name>.ipynb" is readable, and
// executes the notebook's code cells into the module namespace in document
// order.
//
// Two kinds of code cell are never compiled: cells whose trimmed source starts
// with a directive prefix ("%" by default), which hold magics that only make
// sense inside an interactive session, and cells tagged "noimport" in their
// metadata. Code cells are numbered from 1 before this filtering, so a cell
// keeps its "<path> Cell <N>" label no matter which cells around it are skipped.
package loader
