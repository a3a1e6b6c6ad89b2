// Package layout converts block directives in a rendered body into styled
// containers.
//
// Directives occupy whole lines and begin with ":::":
//
//	::: grid columns=2 gap=1em
//	::: cell span=1 align=center valign=middle background=#eee
//	...
//	::: cell
//	...
//	::: endgrid
//
//	::: panel class=tightpanel
//	...
//	::: endpanel
//
// Blocks nest. A cell directive is valid only directly inside a grid and
// extends to the next cell or the end of the grid. The output is plain
// <div> markup and does not depend on the backend that renders it.
package layout
