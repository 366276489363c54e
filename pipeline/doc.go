// Package pipeline builds and drives a repeating, stage-parallel job
// pipeline from a configuration document.
//
// A document names an ordered list of stages; each stage lists its tasks and
// each task names a handler, its inputs and an opaque config value:
//
//	settings:
//	  configuration-name: camera-feed
//	  threadpool-size: 4
//	  performance-history-size: 100
//	pipeline: [capture, detect]
//	capture: [camera-1]
//	detect: [detector]
//	camera-1:
//	  handler: vision.Camera
//	  config: {url: rtsp://cam1}
//	detector:
//	  handler: vision.Detector
//	  input: [camera-1]
//
// New validates the document and constructs every job through the handler
// registry of the config.Store. Run then sets the jobs up, executes the stages
// in order once per iteration and tears the jobs down when the loop ends.
// Within a stage, jobs run concurrently on a worker pool of
// threadpool-size; the stage returns only after all of them finished.
//
// Before a stage runs, each of its jobs receives the current outputs of its
// inputs. An input produced in the same or a later stage therefore carries
// the value of the previous iteration; New logs such dependencies and
// StaleDependencies lists them.
package pipeline
