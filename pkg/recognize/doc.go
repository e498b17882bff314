// Package recognize drives a photo through an ordered plan of vision
// backends until one of them names the product in it.
//
// A recognition run prepares the image once (variant selection,
// transcoding to fit the inline byte budget, and publishing to a public
// URL when the plan head wants one), then walks the plan target by
// target. Transient backend failures are retried with exponential
// backoff under a per-target attempt budget; empty replies and
// permanent failures advance to the next target immediately. The first
// non-empty normalized reply wins. When every target fails, the caller
// gets an ExhaustedError carrying the per-target outcomes for
// diagnostics.
package recognize
