// Package trim crops formula images to a selected rectangle.
//
// A Session walks a queue of images. For the current image a pointer
// gesture selects a rectangle:
//
//	Idle ──PointerDown──▶ Selecting ──Drag──▶ Selecting
//	Selecting ──PointerUp (span ≥ MinSpan)──▶ Selected
//	Selecting ──PointerUp (span < MinSpan)──▶ Idle
//
// Save crops the current image to the selection and overwrites it. Skip and
// Next move on without writing. Every action that moves on resets the state
// to Idle.
//
// A Session is driven by a single goroutine and is not safe for concurrent
// use. Replay drives one from a targets file so selections can be scripted.
package trim
