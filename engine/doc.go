// Package engine assembles the separation pipeline into a real-time
// renderer.
//
// An [Engine] owns the control plane, the heuristic separator, and, when
// the neural path is enabled, the bridge and inference worker. The render
// goroutine calls [Engine.Process] once per quantum; the inference goroutine
// is started with [Engine.Run]. Control patches may arrive from any
// goroutine through [Engine.Apply] and [Engine.ApplyJSON].
package engine
