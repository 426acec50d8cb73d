// Package batch runs the hole-filling pipeline over every matching image in
// a directory.
//
// Discovery selects the regular files of the root directory whose name fully
// matches a pattern and orders them explicitly (see Ordering). Each file is
// loaded, processed and, when the result differs, written back in place
// through a temporary file and a rename. A failing file is recorded and the
// batch moves on.
//
// Files are independent and may be processed concurrently; the Summary keeps
// discovery order regardless of completion order.
package batch
