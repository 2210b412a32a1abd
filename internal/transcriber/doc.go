// Package transcriber drives an external diarizing speech-to-text provider
// and normalizes its response into Transcript.segments.
//
// The client submits the episode's audioUrl as a streamed reference (the
// provider fetches the audio itself; nothing is downloaded locally), then
// polls for completion. segments.go applies three normalization strategies in
// priority order and keeps the first that yields at least one segment:
// provider utterance boundaries, paragraph groupings, then a fallback that
// coalesces runs of same-speaker words.
package transcriber
