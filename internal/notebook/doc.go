// Package notebook reads Jupyter nbformat documents into an ordered list of
// cells. It only extracts what importing needs: the cell type, its source text
// and its metadata. Outputs are ignored.
package notebook
