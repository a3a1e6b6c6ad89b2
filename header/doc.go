// Package header splits program sources into metadata and body.
//
// A program source starts with a contiguous block of lines prefixed by
// [Marker]. With the marker removed, those lines form a YAML mapping:
//
//	#@ dsl: text
//	#@ description: Adds two numbers
//	#@ inputs: [a, b]
//	#@ outputs: [total]
//	{{ total = a + b }}{{ total }}
//
// The first line without the marker ends the header; everything after it is
// the body. [Format] renders a [Header] back into marker-prefixed lines.
package header
