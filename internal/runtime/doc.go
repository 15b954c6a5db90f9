// Package runtime is the import host that notebook loading plugs into. It keeps
// an ordered chain of finders, a registry of imported modules and the per-name
// import locks. A module's namespace is an embedded Go interpreter, so source
// supplied at run time can be compiled and executed into it fragment by
// fragment.
//
// Import follows a two-phase contract. A finder first claims a name by
// returning a Spec. The spec's loader then executes the module into a fresh
// namespace. Finders are consulted in chain order and the first match wins.
package runtime
