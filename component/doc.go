// Package component defines the lifecycle contract shared by the long-lived
// parts of a jobrunner process and an ordered registry that starts and stops
// them.
//
// Components are started in registration order and stopped in reverse order.
// Optional interfaces let a component describe itself (Describable) or list
// its HTTP routes (RouteProvider) for the startup summary.
package component
