// Package imaging handles image acquisition for the recognition pipeline:
// choosing the best resolution variant of an uploaded photo under a byte
// budget (Select), and re-encoding an oversized asset down to that budget
// (Transcoder). Selection fetches variants lazily and survives individual
// fetch failures; transcoding never fails the pipeline, it only improves
// the odds of acceptance downstream.
package imaging
