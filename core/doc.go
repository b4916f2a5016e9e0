// Package core implements the actor runtime of molniya.
//
// It provides the building blocks of the concurrency model: Events and
// their cross-thread envelope, actor identity (ActorID/ActorInfo), the
// per-thread cooperative Scheduler, and the System that orchestrates a
// pool of schedulers across OS threads. Everything above this package
// (protocol handling, feature managers, codecs) is a consumer of the
// actor-creation, send, and timeout APIs defined here.
package core
