// Package assembler renders a digest's clips and narration into a single
// loudness-normalized MP3 with a chapter index.
//
// All work happens inside a per-digest scratch directory that is removed on
// every exit path. Source episode audio and narration segments are fetched
// into the scratch directory, clips are extracted with fades, segments are
// concatenated with transition-style-dependent gaps, the result is
// loudness-normalized in two ffmpeg passes, and chapter timings are computed
// analytically then clamped to the probed final duration.
package assembler
