// Package narrator generates the intro/transition/outro scripts for a
// digest's clip sequence and synthesizes each into narration audio.
//
// One LLM call produces all N+2 scripts for N clips, delimiter-separated;
// each script is then sent to a text-to-speech provider and the resulting
// audio uploaded to the object store at its stable narration key.
package narrator
